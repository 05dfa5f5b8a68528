// Package reader turns text into timed words and tracks a reading position over them.
package reader

import (
	"math"
	"time"
	"unicode/utf8"
)

// maxWordMillis bounds a single word's display time.
const maxWordMillis = math.MaxInt32

// Word is one timed display unit. The zero value is not a valid word.
type Word struct {
	text     string
	duration int
}

// NewWord builds a word. Durations are kept within [1 ms, maxWordMillis].
func NewWord(text string, durationMillis int) Word {
	durationMillis = min(max(durationMillis, 1), maxWordMillis)
	return Word{text: text, duration: durationMillis}
}

// Text returns the display text.
func (w Word) Text() string {
	return w.text
}

// DurationMillis returns the display duration in milliseconds.
func (w Word) DurationMillis() int {
	return w.duration
}

// Duration returns the display duration.
func (w Word) Duration() time.Duration {
	return time.Duration(w.duration) * time.Millisecond
}

// Len returns the length of the text in runes.
func (w Word) Len() int {
	return utf8.RuneCountInString(w.text)
}

func (w Word) String() string {
	return w.text
}
