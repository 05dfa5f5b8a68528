package reader

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	defaultBaseMillis = 750
	defaultMinMillis  = 250
	defaultMaxMillis  = 3000

	// MaxBaseMillis is the largest accepted base rate.
	MaxBaseMillis = 60 * 60 * 1000
)

// Pacing controls how long each token stays on screen.
//
// A token gets BaseMillis scaled by its length relative to AverageLength, never
// less than BaseMillis, then clamped to [MinMillis, MaxMillis]. A zero bound
// leaves that side open. AverageLength <= 0 uses the mean token length of the
// content being tokenized.
type Pacing struct {
	BaseMillis    int
	MinMillis     int
	MaxMillis     int
	AverageLength float64
}

// DefaultPacing returns the pacing used when nothing is configured.
func DefaultPacing() Pacing {
	return Pacing{
		BaseMillis: defaultBaseMillis,
		MinMillis:  defaultMinMillis,
		MaxMillis:  defaultMaxMillis,
	}
}

// Validate reports pacing values that cannot produce sane durations.
func (p Pacing) Validate() error {
	if p.BaseMillis <= 0 {
		return fmt.Errorf("base rate must be > 0")
	}
	if p.BaseMillis > MaxBaseMillis {
		return fmt.Errorf("base rate must be <= %d", MaxBaseMillis)
	}
	if p.MinMillis < 0 {
		return fmt.Errorf("minimum duration must be >= 0")
	}
	if p.MaxMillis < 0 {
		return fmt.Errorf("maximum duration must be >= 0")
	}
	if p.MaxMillis > 0 && p.MinMillis > p.MaxMillis {
		return fmt.Errorf("minimum duration %d exceeds maximum %d", p.MinMillis, p.MaxMillis)
	}
	return nil
}

// WordsPerMinute is the nominal reading speed of the base rate.
func (p Pacing) WordsPerMinute() float64 {
	if p.BaseMillis <= 0 {
		return 0
	}
	return 60000.0 / float64(p.BaseMillis)
}

// Tokenize splits content on whitespace and assigns each token its duration.
func Tokenize(content string, p Pacing) []Word {
	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return []Word{}
	}
	avg := p.AverageLength
	if avg <= 0 {
		avg = meanLength(tokens)
	}
	words := make([]Word, 0, len(tokens))
	for _, token := range tokens {
		words = append(words, NewWord(token, p.durationFor(utf8.RuneCountInString(token), avg)))
	}
	return words
}

func (p Pacing) durationFor(length int, avg float64) int {
	scale := 1.0
	if avg > 0 {
		scale = math.Max(1, float64(length)/avg)
	}
	d := int(math.Round(math.Min(float64(p.BaseMillis)*scale, maxWordMillis)))
	if p.MinMillis > 0 && d < p.MinMillis {
		d = p.MinMillis
	}
	if p.MaxMillis > 0 && d > p.MaxMillis {
		d = p.MaxMillis
	}
	if d < 1 {
		d = 1
	}
	return d
}

func meanLength(tokens []string) float64 {
	total := 0
	for _, token := range tokens {
		total += utf8.RuneCountInString(token)
	}
	return float64(total) / float64(len(tokens))
}
