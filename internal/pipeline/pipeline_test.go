package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/service"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type countingRefresher struct{ n atomic.Int32 }

func (c *countingRefresher) Refresh(context.Context) service.Result {
	c.n.Add(1)
	return service.Result{Degraded: true}
}

func TestRefresher_RunLoop(t *testing.T) {
	rec := &countingRefresher{}
	r := NewRefresher(rec, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunLoop(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return rec.n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type staticFeed []domain.Market

func (s staticFeed) Markets() []domain.Market { return s }

type recordingArchive struct {
	got []domain.Market
	at  time.Time
	err error
}

func (r *recordingArchive) ArchiveFeed(_ context.Context, ms []domain.Market, at time.Time) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.got, r.at = ms, at
	return "feeds/x.jsonl", nil
}

func TestArchiver_Run(t *testing.T) {
	feed := staticFeed{{ID: "demo-1"}, {ID: "chain-0xa1"}}
	arch := &recordingArchive{}
	a := NewArchiver(feed, arch, discard())
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	require.NoError(t, a.Run(context.Background()))
	assert.Len(t, arch.got, 2)
	assert.Equal(t, fixed, arch.at)

	arch.err = errors.New("bucket missing")
	assert.ErrorContains(t, a.Run(context.Background()), "bucket missing")
}

func TestCronNext(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC) // a Sunday

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 3, 1, 10, 8, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)},
		{"0 3 * * *", time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)},
		{"30 9-17/4 * * 1-5", time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
		{"0 0 1 * *", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"5,10 10 * * *", time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sched, err := parseCron(tt.expr)
			require.NoError(t, err)
			got, err := sched.next(base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCron_Invalid(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *", "0 0 31 2 *"} {
		sched, err := parseCron(expr)
		if err == nil {
			_, err = sched.next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		}
		assert.Error(t, err, expr)
	}
}
