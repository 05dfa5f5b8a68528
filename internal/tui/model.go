// Package tui provides the Bubble Tea reading interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/speedr/internal/model"
	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/reader"
	"github.com/verte-zerg/speedr/internal/session"
	"github.com/verte-zerg/speedr/internal/source"
)

type mode int

const (
	modeQueue mode = iota
	modeCountdown
	modeReading
	modePaused
	modePrompt
)

type queueItem struct {
	src source.Source
}

func (i queueItem) Title() string       { return i.src.Title() }
func (i queueItem) Description() string { return i.src.Detail() }
func (i queueItem) FilterValue() string { return i.src.Title() }

// Model implements the Bubble Tea reader UI.
type Model struct {
	config   model.Config
	sources  []source.Source
	recorder session.Recorder
	logger   *slog.Logger
	wpm      float64

	width  int
	height int

	mode  mode
	queue list.Model
	bar   progress.Model

	current   int
	sess      *session.Session
	feed      *feed
	gen       int
	countdown int
	pausing   bool

	word    reader.Word
	hasWord bool
	window  reader.ContextWindow
	status  string
}

// NewModel constructs a reader over the given sources. recorder may be nil.
func NewModel(cfg model.Config, sources []source.Source, recorder session.Recorder, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	items := make([]list.Item, len(sources))
	for i, src := range sources {
		items[i] = queueItem{src: src}
	}
	queue := list.New(items, list.NewDefaultDelegate(), 0, 0)
	queue.Title = "speedr"
	queue.SetFilteringEnabled(false)
	queue.SetShowHelp(false)

	return &Model{
		config:   cfg,
		sources:  sources,
		recorder: recorder,
		logger:   logger,
		wpm:      session.Pacing(cfg).WordsPerMinute(),
		queue:    queue,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width, max(msg.Height-1, 1))
		m.bar.Width = max(min(msg.Width-4, 60), 10)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case countdownMsg:
		if msg.gen != m.gen || m.mode != modeCountdown {
			return m, nil
		}
		m.countdown--
		if m.countdown > 0 {
			return m, m.tick()
		}
		return m, m.startEngine()
	case pumpMsg:
		if msg.gen != m.gen || m.sess == nil {
			return m, nil
		}
		return m, m.handleEvent(msg.event)
	case pausedMsg:
		if msg.gen != m.gen || m.sess == nil {
			return m, nil
		}
		m.pausing = false
		if msg.err != nil {
			// The engine finished between the key press and the pause.
			if errors.Is(msg.err, pump.ErrInvalidState) {
				return m, nil
			}
			m.status = msg.err.Error()
			m.logger.Warn("pause failed", "err", msg.err)
			if errors.Is(msg.err, pump.ErrAckTimeout) {
				m.endSession()
				m.mode = modeQueue
			}
			return m, nil
		}
		m.sess.NotePause()
		m.window = msg.window
		m.mode = modePaused
		return m, nil
	}
	if m.mode == modeQueue {
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		m.endSession()
		return m, tea.Quit
	}
	switch m.mode {
	case modeQueue:
		if key == "enter" {
			return m, m.begin(m.queue.Index(), true)
		}
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	case modeCountdown:
		if key == "s" || key == "esc" {
			m.endSession()
			m.mode = modeQueue
		}
		return m, nil
	case modeReading, modePaused:
		switch key {
		case " ", "up":
			return m, m.togglePause()
		case "right":
			return m, m.skip(1)
		case "left":
			return m, m.skip(-1)
		case "s", "esc":
			m.endSession()
			m.mode = modeQueue
		}
		return m, nil
	case modePrompt:
		switch key {
		case "y", "enter":
			return m, m.begin(m.current+1, true)
		case "n", "esc":
			m.mode = modeQueue
		}
		return m, nil
	}
	return m, nil
}

// begin opens source idx in a fresh session and either starts the countdown
// or the engine. Any previous session is finished first.
func (m *Model) begin(idx int, countdown bool) tea.Cmd {
	m.endSession()
	if idx < 0 || idx >= len(m.sources) {
		m.mode = modeQueue
		return nil
	}
	sess, err := session.Open(m.sources[idx], m.config, m.logger)
	if err != nil {
		m.status = err.Error()
		m.logger.Error("failed to open source", "err", err)
		m.mode = modeQueue
		return nil
	}
	m.gen++
	m.current = idx
	m.queue.Select(idx)
	m.sess = sess
	m.feed = newFeed(m.gen)
	m.hasWord = false
	m.window = reader.ContextWindow{}
	m.pausing = false
	m.status = ""
	if _, err := sess.Engine.AddListener(m.feed); err != nil {
		m.status = err.Error()
		m.endSession()
		m.mode = modeQueue
		return nil
	}
	if countdown && m.config.Countdown > 0 {
		m.countdown = m.config.Countdown
		m.mode = modeCountdown
		return m.tick()
	}
	return m.startEngine()
}

func (m *Model) tick() tea.Cmd {
	gen := m.gen
	interval := time.Duration(m.config.CountdownMillis) * time.Millisecond
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return countdownMsg{gen: gen}
	})
}

func (m *Model) startEngine() tea.Cmd {
	if err := m.sess.Start(); err != nil {
		m.status = err.Error()
		m.endSession()
		m.mode = modeQueue
		return nil
	}
	m.mode = modeReading
	return m.feed.wait()
}

func (m *Model) handleEvent(ev pump.Event) tea.Cmd {
	if ev.Done() {
		m.endSession()
		if m.current+1 < len(m.sources) {
			m.mode = modePrompt
		} else {
			m.mode = modeQueue
			m.status = "finished " + m.sources[m.current].Title()
		}
		return nil
	}
	m.word = ev.Word
	m.hasWord = true
	return m.feed.wait()
}

func (m *Model) togglePause() tea.Cmd {
	if m.sess == nil || m.pausing {
		return nil
	}
	if m.mode == modePaused {
		if err := m.sess.Engine.SetPaused(false); err != nil {
			m.status = err.Error()
			return nil
		}
		m.mode = modeReading
		return nil
	}
	m.pausing = true
	return pauseCmd(m.gen, m.sess.Engine)
}

// skip stops the current session and reads the neighbouring source without a
// countdown. At either end of the queue the current source is restarted.
func (m *Model) skip(delta int) tea.Cmd {
	idx := m.current + delta
	if idx < 0 || idx >= len(m.sources) {
		idx = m.current
	}
	return m.begin(idx, false)
}

// endSession stops and records the active session, if any.
func (m *Model) endSession() {
	if m.sess == nil {
		return
	}
	if m.feed != nil {
		m.feed.close()
	}
	if err := m.sess.Record(context.Background(), m.recorder); err != nil {
		m.logger.Error("failed to record session", "err", err)
	}
	m.sess = nil
	m.feed = nil
	m.pausing = false
}

// View implements tea.Model.
func (m *Model) View() string {
	switch m.mode {
	case modeQueue:
		view := m.queue.View()
		if m.status != "" {
			view += "\n" + statusStyle.Render(m.status)
		}
		return view
	case modeCountdown:
		return m.place(countdownStyle.Render(strconv.Itoa(m.countdown)), "")
	case modePrompt:
		next := m.sources[m.current+1].Title()
		return m.place(fmt.Sprintf("Finished. Play next: %s? (y/n)", next), "")
	}
	return m.place(m.readingBody(), m.readingFooter())
}

func (m *Model) readingBody() string {
	center := m.contentWidth() / 2
	if m.mode == modePaused {
		return renderContext(m.window, m.contentWidth())
	}
	word := ""
	if m.hasWord {
		word = renderWord(m.word.Text(), center)
	}
	bar := m.bar.ViewAs(m.fraction())
	return lipgloss.JoinVertical(lipgloss.Left,
		renderMarker(center),
		word,
		renderMarker(center),
		"",
		bar,
	)
}

func (m *Model) readingFooter() string {
	if m.sess == nil {
		return ""
	}
	pos, total := m.sess.Engine.Position()
	return renderFooter(pos, total, m.wpm, m.sess.Engine.Remaining(), m.mode == modePaused)
}

func (m *Model) fraction() float64 {
	if m.sess == nil {
		return 0
	}
	pos, total := m.sess.Engine.Position()
	if total == 0 {
		return 1
	}
	return float64(pos) / float64(total)
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 40
	}
	return max(int(float64(m.width)*0.70), 1)
}

func (m *Model) place(content, footer string) string {
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}
