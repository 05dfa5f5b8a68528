// Package stats contains reading metrics and history reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/speedr/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes the effective words per minute of a session and the
// share of the source that was read.
func SessionMetrics(wordsRead, wordsTotal int, durationMs int64) (wpm, completion float64) {
	if wordsTotal > 0 {
		completion = float64(wordsRead) / float64(wordsTotal)
	}
	if durationMs <= 0 {
		return 0, completion
	}
	minutes := float64(durationMs) / 60000.0
	wpm = float64(wordsRead) / minutes
	return wpm, completion
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalWPM float64
	var totalWords, completed, pauses int
	var totalMs int64
	bestWPM := 0.0
	for _, s := range sessions {
		wpm, _ := SessionMetrics(s.WordsRead, s.WordsTotal, s.DurationMs)
		totalWPM += wpm
		bestWPM = math.Max(bestWPM, wpm)
		totalWords += s.WordsRead
		totalMs += s.DurationMs
		pauses += s.Pauses
		if s.Outcome == model.OutcomeCompleted {
			completed++
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d completed)", len(sessions), completed),
		fmt.Sprintf("Words read: %d", totalWords),
		fmt.Sprintf("Time reading: %s", (time.Duration(totalMs) * time.Millisecond).Round(time.Second)),
		fmt.Sprintf("Avg WPM: %.2f", totalWPM/count),
		fmt.Sprintf("Best WPM: %.2f", bestWPM),
		fmt.Sprintf("Pauses: %d", pauses),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the smoothed WPM sparkline.
func RenderTrend(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) < 2 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i], _ = SessionMetrics(s.WordsRead, s.WordsTotal, s.DurationMs)
	}
	wpms = MovingAverage(wpms, window)
	if _, err := fmt.Fprintf(w, "WPM trend (window %d)\n%s\n\n", window, Sparkline(wpms)); err != nil {
		return err
	}
	return nil
}

// RenderHistory prints one row per session.
func RenderHistory(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	headers := []string{"Ended", "Source", "Words", "Read", "WPM", "Pauses", "Outcome"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		wpm, completion := SessionMetrics(s.WordsRead, s.WordsTotal, s.DurationMs)
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			truncate(s.SourceTitle, 40),
			fmt.Sprintf("%d", s.WordsTotal),
			fmt.Sprintf("%.0f%%", completion*100),
			fmt.Sprintf("%.1f", wpm),
			fmt.Sprintf("%d", s.Pauses),
			string(s.Outcome),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
