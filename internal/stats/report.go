package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/speedr/internal/model"
)

// SessionLister loads recorded sessions in end-time order.
type SessionLister interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions    []model.SessionAggregate
	CurveWindow int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st SessionLister, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return Report{Sessions: sessions, CurveWindow: cfg.CurveWindow}, nil
}

// Render writes the summary, trend and session table.
func (r Report) Render(w io.Writer) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if err := RenderTrend(w, r.Sessions, r.CurveWindow); err != nil {
		return err
	}
	return RenderHistory(w, r.Sessions)
}
