package core

// scheduler.go refreshes the snapshot in the background so edits made to the
// store outside this process (a workbook saved from a spreadsheet program, a
// row changed with psql) show up without a write or a manual reload.
//
// The scheduler is long-running and stops with its context. A failed refresh
// is logged and leaves the previous snapshot readable, flagged stale.

import (
	"context"
	"log/slog"
	"time"
)

// StartRefreshScheduler reloads the inventory every interval until ctx is
// cancelled. It does not load immediately; call Load first. A non-positive
// interval returns at once.
func (s *Service) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("refresh scheduler started",
		"store", s.store.Name(),
		"interval", interval.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

// runRefresh performs one bounded reload.
func (s *Service) runRefresh(ctx context.Context) {
	start := time.Now()

	loadCtx, cancel := context.WithTimeout(ctx, DefaultLoadTimeout)
	defer cancel()

	if err := s.Reload(loadCtx); err != nil {
		// Reload already logged the failure and marked the snapshot stale.
		return
	}
	slog.Debug("scheduled refresh completed",
		"categories", s.Status().Categories,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
