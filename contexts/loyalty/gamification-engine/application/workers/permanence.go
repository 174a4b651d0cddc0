package workers

import (
	"context"
	"log/slog"

	"divan/contexts/loyalty/gamification-engine/application"
	"divan/contexts/loyalty/gamification-engine/ports"
)

// PermanenceSweeper is the worker wrapper around the periodic tenure sweep.
// The bootstrap loop calls RunOnce on its cadence; idempotency lives in the
// per-user period gate, not here, so re-triggering early is harmless.
type PermanenceSweeper struct {
	Service application.Service
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (w PermanenceSweeper) RunOnce(ctx context.Context) error {
	awarded, err := w.Service.RunPermanenceSweep(ctx, w.Clock.Now().UTC())
	if err != nil {
		return err
	}
	if w.Logger != nil {
		w.Logger.Info("permanence sweep tick",
			"event", "permanence_sweeper_tick",
			"module", "loyalty/gamification-engine",
			"layer", "workers",
			"users_awarded", awarded,
		)
	}
	return nil
}
