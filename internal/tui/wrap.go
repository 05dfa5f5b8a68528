package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/speedr/internal/reader"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// contextRunes lays out a paused context window. The last word before the
// cursor is the one that was on screen when the pause landed.
func contextRunes(window reader.ContextWindow) []styledRune {
	out := make([]styledRune, 0, 64)
	appendWord := func(w reader.Word, style func(...string) string) {
		if len(out) > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		for _, r := range w.Text() {
			out = append(out, styledRune{
				s:     style(string(r)),
				width: runewidth.RuneWidth(r),
			})
		}
	}
	for i, w := range window.Before {
		if i == len(window.Before)-1 {
			appendWord(w, currentWordStyle.Render)
			continue
		}
		appendWord(w, readStyle.Render)
	}
	for _, w := range window.After {
		appendWord(w, pendingStyle.Render)
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits, or mid-word when a
// single word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		if item.isSpace && len(line) == 0 {
			i++
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
