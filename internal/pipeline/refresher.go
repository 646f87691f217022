package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pharosbet/internal/service"
)

// FeedRefresher rebuilds the market feed. *service.Reconciler satisfies it.
type FeedRefresher interface {
	Refresh(ctx context.Context) service.Result
}

// Refresher polls the chain for market changes on an interval.
type Refresher struct {
	reconciler FeedRefresher
	logger     *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(reconciler FeedRefresher, logger *slog.Logger) *Refresher {
	return &Refresher{
		reconciler: reconciler,
		logger:     logger.With(slog.String("component", "refresher")),
	}
}

// Run performs one refresh.
func (r *Refresher) Run(ctx context.Context) service.Result {
	res := r.reconciler.Refresh(ctx)
	if res.Degraded {
		r.logger.WarnContext(ctx, "refresh degraded to off-chain markets",
			slog.Int("markets", len(res.Markets)),
		)
	}
	return res
}

// RunLoop refreshes immediately and then every interval until ctx is
// cancelled.
func (r *Refresher) RunLoop(ctx context.Context, interval time.Duration) error {
	r.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Run(ctx)
		}
	}
}
