package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes expired sessions from a store that does not expire them
// itself.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Worker struct {
	purger   Purger
	interval time.Duration
}

func NewWorker(p Purger, interval time.Duration) *Worker {
	return &Worker{purger: p, interval: interval}
}

// Run purges once, then every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Session cleanup worker started", "interval", w.interval)
	w.runCleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

func (w *Worker) runCleanup(ctx context.Context) {
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
		}
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Removed expired sessions", "sessions.purged", n)
	}
}
