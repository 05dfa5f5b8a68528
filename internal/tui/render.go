package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/speedr/internal/reader"
)

var (
	wordStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pivotStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	readStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Underline(true)
	countdownStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	markerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// pivotIndex returns the rune the eye should fixate on for a word of n runes.
func pivotIndex(n int) int {
	switch {
	case n <= 1:
		return 0
	case n <= 5:
		return 1
	case n <= 9:
		return 2
	case n <= 13:
		return 3
	default:
		return 4
	}
}

// renderWord places the pivot rune of text on column center. Words whose
// prefix is wider than center start at column zero.
func renderWord(text string, center int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	p := pivotIndex(len(runes))
	prefix := string(runes[:p])
	pad := center - runewidth.StringWidth(prefix)
	if pad < 0 {
		pad = 0
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", pad))
	if prefix != "" {
		b.WriteString(wordStyle.Render(prefix))
	}
	b.WriteString(pivotStyle.Render(string(runes[p])))
	if suffix := string(runes[p+1:]); suffix != "" {
		b.WriteString(wordStyle.Render(suffix))
	}
	return b.String()
}

// renderMarker draws the fixation tick above or below the pivot column.
func renderMarker(center int) string {
	return strings.Repeat(" ", max(center, 0)) + markerStyle.Render("│")
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func renderFooter(pos, total int, wpm float64, remaining time.Duration, paused bool) string {
	segments := []string{
		fmt.Sprintf("%d/%d", pos, total),
		fmt.Sprintf("%.0f WPM", wpm),
		formatRemaining(remaining) + " left",
	}
	if paused {
		segments = append(segments, "paused")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func renderContext(window reader.ContextWindow, width int) string {
	return wrapStyledRunes(contextRunes(window), width)
}
