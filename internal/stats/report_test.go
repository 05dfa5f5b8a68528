package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/speedr/internal/model"
	"github.com/verte-zerg/speedr/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "speedr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var titles []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		title := "source " + string(rune('a'+i))
		stats := model.NewSessionStats(title, "inbox", 100, 500, start)
		stats.Finish(start.Add(30*time.Second), 60, model.OutcomeCompleted)
		if _, err := st.InsertSession(ctx, stats); err != nil {
			t.Fatalf("insert session: %v", err)
		}
		titles = append(titles, title)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 2, CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SourceTitle != titles[1] || report.Sessions[1].SourceTitle != titles[2] {
		t.Fatalf("unexpected sessions: %+v", report.Sessions)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2 (2 completed)", "Avg WPM: 120.00", "WPM trend", "source c", "60%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No sessions found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSessionMetrics(t *testing.T) {
	wpm, completion := SessionMetrics(150, 300, 60000)
	if wpm != 150 {
		t.Fatalf("expected 150 wpm, got %f", wpm)
	}
	if completion != 0.5 {
		t.Fatalf("expected 0.5 completion, got %f", completion)
	}
	if wpm, _ := SessionMetrics(10, 10, 0); wpm != 0 {
		t.Fatalf("expected 0 wpm for zero duration, got %f", wpm)
	}
}

func TestMovingAverageAndSparkline(t *testing.T) {
	avg := MovingAverage([]float64{2, 4, 6}, 2)
	if avg[0] != 2 || avg[1] != 3 || avg[2] != 5 {
		t.Fatalf("unexpected moving average: %v", avg)
	}
	if got := Sparkline([]float64{1, 1, 1}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}
