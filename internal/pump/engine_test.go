package pump_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/pump/pumptest"
	"github.com/verte-zerg/speedr/internal/reader"
)

const waitTimeout = 5 * time.Second

func newEngine(t *testing.T, words []reader.Word, opts ...pump.Option) (*pump.Engine, *pumptest.Recorder) {
	t.Helper()
	e := pump.New(reader.NewStream(words), opts...)
	rec := pumptest.NewRecorder()
	if _, err := e.AddListener(rec); err != nil {
		t.Fatalf("add listener: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Stop()
	})
	return e, rec
}

func waitDone(t *testing.T, e *pump.Engine) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("engine did not finish, state %s", e.State())
	}
}

func waitEvents(t *testing.T, rec *pumptest.Recorder, n int) {
	t.Helper()
	if !rec.WaitFor(n, waitTimeout) {
		t.Fatalf("expected %d events, got %q", n, rec.Transcript())
	}
}

func words(pairs ...any) []reader.Word {
	out := make([]reader.Word, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, reader.NewWord(pairs[i].(string), pairs[i+1].(int)))
	}
	return out
}

func TestEngineDeliversEveryWordThenComplete(t *testing.T) {
	stream := reader.FromContent("one two three", reader.Pacing{BaseMillis: 5})
	e := pump.New(stream)
	rec := pumptest.NewRecorder()
	if _, err := e.AddListener(rec); err != nil {
		t.Fatalf("add listener: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)

	if got := rec.Transcript(); got != "one two three <done>" {
		t.Fatalf("unexpected events: %q", got)
	}
	if e.State() != pump.StateCompleted {
		t.Fatalf("expected completed, got %s", e.State())
	}
	time.Sleep(20 * time.Millisecond)
	if rec.Len() != 4 {
		t.Fatalf("events after complete: %q", rec.Transcript())
	}
}

func TestEngineEmptyStreamOnlyCompletes(t *testing.T) {
	e, rec := newEngine(t, reader.Tokenize("", reader.DefaultPacing()))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if got := rec.Transcript(); got != "<done>" {
		t.Fatalf("unexpected events: %q", got)
	}
}

func TestEnginePauseReturnsContext(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1, "w2", 60000, "w3", 1, "w4", 1, "w5", 1), pump.WithWindowSize(2))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 2)

	ctx, err := e.PauseAndGetContext()
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !e.IsPaused() {
		t.Fatalf("expected paused engine")
	}
	if got := ctx.BeforeText(); got != "w1 w2" {
		t.Fatalf("unexpected before: %q", got)
	}
	if got := ctx.AfterText(); got != "w3 w4" {
		t.Fatalf("unexpected after: %q", got)
	}
	if pos, total := e.Position(); pos != 2 || total != 5 {
		t.Fatalf("unexpected position %d/%d", pos, total)
	}
}

func TestEnginePauseWithUnboundedWindow(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1, "w2", 60000, "w3", 1), pump.WithWindowSize(math.MaxInt))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 2)

	ctx, err := e.PauseAndGetContext()
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if ctx.BeforeText() != "w1 w2" || ctx.AfterText() != "w3" {
		t.Fatalf("unexpected window %q / %q", ctx.BeforeText(), ctx.AfterText())
	}
}

func TestEnginePauseHoldsDelivery(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1, "w2", 300, "w3", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 2)
	if _, err := e.PauseAndGetContext(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	time.Sleep(400 * time.Millisecond)
	if got := rec.Transcript(); got != "w1 w2" {
		t.Fatalf("delivery continued while paused: %q", got)
	}
}

func TestEngineResumeReplaysCurrentWord(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1, "w2", 300, "w3", 1, "w4", 1, "w5", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 2)
	if _, err := e.PauseAndGetContext(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.SetPaused(false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if e.IsPaused() {
		t.Fatalf("expected running engine after resume")
	}
	waitDone(t, e)
	if got := rec.Transcript(); got != "w1 w2 w2 w3 w4 w5 <done>" {
		t.Fatalf("unexpected events: %q", got)
	}
}

func TestEngineResumeGivesFullDuration(t *testing.T) {
	e, rec := newEngine(t, words("w1", 200, "w2", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 1)
	if _, err := e.PauseAndGetContext(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	resumedAt := time.Now()
	if err := e.SetPaused(false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitEvents(t, rec, 3)
	if elapsed := time.Since(resumedAt); elapsed < 190*time.Millisecond {
		t.Fatalf("replayed word shown for %s, expected full duration", elapsed)
	}
}

func TestEngineStopEndsDelivery(t *testing.T) {
	e, rec := newEngine(t, words("w1", 60000, "w2", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 1)

	started := time.Now()
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitDone(t, e)
	if time.Since(started) > time.Second {
		t.Fatalf("stop did not interrupt the word timer")
	}
	if e.State() != pump.StateStopped {
		t.Fatalf("expected stopped, got %s", e.State())
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := rec.Transcript(); got != "w1" {
		t.Fatalf("unexpected events after stop: %q", got)
	}
}

func TestEngineStopWhilePaused(t *testing.T) {
	e, rec := newEngine(t, words("w1", 60000, "w2", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 1)
	if _, err := e.PauseAndGetContext(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitDone(t, e)
	if err := e.SetPaused(false); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("expected invalid state on resume after stop, got %v", err)
	}
	if got := rec.Transcript(); got != "w1" {
		t.Fatalf("unexpected events: %q", got)
	}
}

func TestEngineStopBeforeStart(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1))
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitDone(t, e)
	if err := e.Start(); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if rec.Len() != 0 {
		t.Fatalf("unexpected events: %q", rec.Transcript())
	}
}

func TestEngineStopAfterCompleteIsNoop(t *testing.T) {
	e, _ := newEngine(t, words("w1", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if e.State() != pump.StateCompleted {
		t.Fatalf("stop changed a completed engine to %s", e.State())
	}
}

func TestEngineContractViolations(t *testing.T) {
	e, _ := newEngine(t, words("w1", 60000))
	if _, err := e.PauseAndGetContext(); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("pause on idle: expected invalid state, got %v", err)
	}
	if err := e.SetPaused(false); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("resume on idle: expected invalid state, got %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("second start: expected invalid state, got %v", err)
	}
	if err := e.SetPaused(false); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("resume while running: expected invalid state, got %v", err)
	}
	if err := e.SetPaused(true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := e.PauseAndGetContext(); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("pause while paused: expected invalid state, got %v", err)
	}
}

func TestEnginePauseAfterCompleteFails(t *testing.T) {
	e, _ := newEngine(t, words("w1", 1))
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if _, err := e.PauseAndGetContext(); !errors.Is(err, pump.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestEnginePauseAckTimeoutStopsEngine(t *testing.T) {
	release := make(chan struct{})
	e, rec := newEngine(t, words("w1", 1, "w2", 1), pump.WithAckTimeout(50*time.Millisecond))
	if _, err := e.AddListener(pump.ListenerFunc(func(pump.Event) {
		<-release
	})); err != nil {
		t.Fatalf("add listener: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvents(t, rec, 1)

	if _, err := e.PauseAndGetContext(); !errors.Is(err, pump.ErrAckTimeout) {
		t.Fatalf("expected ack timeout, got %v", err)
	}
	if e.State() != pump.StateStopped {
		t.Fatalf("expected stopped after ack timeout, got %s", e.State())
	}
	close(release)
	waitDone(t, e)
	if got := rec.Transcript(); got != "w1" {
		t.Fatalf("unexpected events: %q", got)
	}
}

func TestEngineListenerPanicStopsEngine(t *testing.T) {
	e, rec := newEngine(t, words("w1", 1, "w2", 1))
	if _, err := e.AddListener(pump.ListenerFunc(func(pump.Event) {
		panic("boom")
	})); err != nil {
		t.Fatalf("add listener: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if e.State() != pump.StateStopped {
		t.Fatalf("expected stopped, got %s", e.State())
	}
	if got := rec.Transcript(); got != "w1" {
		t.Fatalf("unexpected events: %q", got)
	}
}

func TestEngineStopSkipsRemainingListeners(t *testing.T) {
	e := pump.New(reader.NewStream(words("w1", 1, "w2", 1)))
	if _, err := e.AddListener(pump.ListenerFunc(func(pump.Event) {
		_ = e.Stop()
	})); err != nil {
		t.Fatalf("add stopper: %v", err)
	}
	rec := pumptest.NewRecorder()
	if _, err := e.AddListener(rec); err != nil {
		t.Fatalf("add recorder: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if rec.Len() != 0 {
		t.Fatalf("listener after stop received %q", rec.Transcript())
	}
	if e.State() != pump.StateStopped {
		t.Fatalf("expected stopped, got %s", e.State())
	}
}

func TestEngineDeliversInRegistrationOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) pump.ListenerFunc {
		return func(e pump.Event) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	e := pump.New(reader.NewStream(words("w1", 1)))
	for _, name := range []string{"a", "b", "c"} {
		if _, err := e.AddListener(record(name)); err != nil {
			t.Fatalf("add listener %s: %v", name, err)
		}
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)

	mu.Lock()
	defer mu.Unlock()
	expected := []string{"a", "b", "c", "a", "b", "c"}
	if len(order) != len(expected) {
		t.Fatalf("unexpected deliveries: %v", order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
}

func TestEngineListenerRegistry(t *testing.T) {
	e := pump.New(reader.NewStream(words("w1", 1, "w2", 1)))
	if _, err := e.AddListener(nil); !errors.Is(err, pump.ErrNilListener) {
		t.Fatalf("expected nil listener error, got %v", err)
	}
	if _, err := e.AddListener(pump.ListenerFunc(nil)); !errors.Is(err, pump.ErrNilListener) {
		t.Fatalf("expected nil listener error for nil func, got %v", err)
	}

	kept := pumptest.NewRecorder()
	removed := pumptest.NewRecorder()
	if _, err := e.AddListener(kept); err != nil {
		t.Fatalf("add kept: %v", err)
	}
	if _, err := e.AddListener(kept); !errors.Is(err, pump.ErrDuplicateListener) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	id, err := e.AddListener(removed)
	if err != nil {
		t.Fatalf("add removed: %v", err)
	}
	if err := e.RemoveListener(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := e.RemoveListener(id); !errors.Is(err, pump.ErrUnknownListener) {
		t.Fatalf("expected unknown listener error, got %v", err)
	}

	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, e)
	if got := kept.Transcript(); got != "w1 w2 <done>" {
		t.Fatalf("unexpected events: %q", got)
	}
	if removed.Len() != 0 {
		t.Fatalf("removed listener got events: %q", removed.Transcript())
	}
}
