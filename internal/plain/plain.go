// Package plain reads sources on a line-oriented terminal or into a pipe.
package plain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/speedr/internal/model"
	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/session"
	"github.com/verte-zerg/speedr/internal/source"
)

// Reader plays sources one after another. On a terminal each word overwrites
// the previous one; otherwise words are written one per line.
type Reader struct {
	out      io.Writer
	config   model.Config
	recorder session.Recorder
	logger   *slog.Logger

	inPlace   bool
	width     int
	lastWidth int
}

// New returns a Reader writing to out. recorder may be nil.
func New(out io.Writer, cfg model.Config, recorder session.Recorder, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{out: out, config: cfg, recorder: recorder, logger: logger}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.inPlace = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 1 {
			r.width = w
		}
	}
	return r
}

// Run reads every source in order. It returns ctx.Err() when interrupted; the
// interrupted session is still recorded.
func (r *Reader) Run(ctx context.Context, sources []source.Source) error {
	for i, src := range sources {
		if len(sources) > 1 {
			if _, err := fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(sources), src.Title()); err != nil {
				return err
			}
		}
		if err := r.countdown(ctx); err != nil {
			return err
		}
		if err := r.play(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) countdown(ctx context.Context) error {
	if r.config.Countdown <= 0 {
		return nil
	}
	interval := time.Duration(r.config.CountdownMillis) * time.Millisecond
	for n := r.config.Countdown; n > 0; n-- {
		r.show(strconv.Itoa(n))
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.endLine()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (r *Reader) play(ctx context.Context, src source.Source) error {
	sess, err := session.Open(src, r.config, r.logger)
	if err != nil {
		return err
	}
	events := make(chan pump.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	listener := pump.ListenerFunc(func(ev pump.Event) {
		select {
		case events <- ev:
		case <-quit:
		}
	})
	if _, err := sess.Engine.AddListener(listener); err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}

	var interrupted error
loop:
	for {
		select {
		case <-ctx.Done():
			interrupted = ctx.Err()
			break loop
		case ev := <-events:
			if ev.Done() {
				break loop
			}
			r.show(ev.Word.Text())
		}
	}
	r.endLine()
	if err := sess.Record(context.Background(), r.recorder); err != nil {
		r.logger.Error("failed to record session", "err", err)
	}
	read, total := sess.Engine.Position()
	if _, err := fmt.Fprintf(r.out, "%s: %d/%d words\n", src.Title(), read, total); err != nil {
		return err
	}
	return interrupted
}

func (r *Reader) show(text string) {
	var err error
	if !r.inPlace {
		_, err = fmt.Fprintln(r.out, text)
	} else {
		if r.width > 0 {
			text = runewidth.Truncate(text, r.width-1, "…")
		}
		w := runewidth.StringWidth(text)
		_, err = fmt.Fprint(r.out, "\r"+runewidth.FillRight(text, max(w, r.lastWidth)))
		r.lastWidth = w
	}
	if err != nil {
		r.logger.Debug("write failed", "err", err)
	}
}

func (r *Reader) endLine() {
	if !r.inPlace || r.lastWidth == 0 {
		return
	}
	r.lastWidth = 0
	if _, err := fmt.Fprintln(r.out); err != nil {
		r.logger.Debug("write failed", "err", err)
	}
}
