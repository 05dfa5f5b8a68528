package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/reader"
)

const feedBuffer = 64

// pumpMsg carries one engine event into the update loop. gen identifies the
// engine that produced it.
type pumpMsg struct {
	gen   int
	event pump.Event
}

type countdownMsg struct {
	gen int
}

type pausedMsg struct {
	gen    int
	window reader.ContextWindow
	err    error
}

// feed is the engine listener for one session. Events are queued for the
// update loop; once closed, pending sends are dropped so a discarded engine
// never blocks on a reader that has gone away.
type feed struct {
	gen    int
	events chan pump.Event
	quit   chan struct{}
	once   sync.Once
}

func newFeed(gen int) *feed {
	return &feed{
		gen:    gen,
		events: make(chan pump.Event, feedBuffer),
		quit:   make(chan struct{}),
	}
}

// HandlePump runs on the engine worker.
func (f *feed) HandlePump(ev pump.Event) {
	select {
	case f.events <- ev:
	case <-f.quit:
	}
}

func (f *feed) close() {
	f.once.Do(func() { close(f.quit) })
}

// wait returns a command that delivers the next event, or nothing once the
// feed is closed.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-f.events:
			return pumpMsg{gen: f.gen, event: ev}
		case <-f.quit:
			return nil
		}
	}
}

func pauseCmd(gen int, eng *pump.Engine) tea.Cmd {
	return func() tea.Msg {
		window, err := eng.PauseAndGetContext()
		return pausedMsg{gen: gen, window: window, err: err}
	}
}
