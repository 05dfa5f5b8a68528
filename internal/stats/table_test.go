package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Source", "WPM", "Pauses"}
	rows := [][]string{
		{"a", "97.5", "12"},
		{"weekly report", "8.0", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Source         WPM Pauses" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a             97.5     12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "weekly report  8.0      3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Title", "N"}, [][]string{{"日本", "1"}, {"abcd", "2"}}, map[int]bool{1: true})
	if lines[1] != "日本  1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "abcd  2" {
		t.Fatalf("unexpected ascii row: %q", lines[2])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate result %q", got)
	}
	if got := truncate("a very long subject line", 8); displayWidth(got) > 8 {
		t.Fatalf("truncated value too wide: %q", got)
	}
}
