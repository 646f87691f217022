package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// Registry reads the market factory and market contracts. *chain.Gateway
// satisfies it.
type Registry interface {
	MarketCount(ctx context.Context) (uint64, error)
	MarketAddresses(ctx context.Context, offset, limit uint64) ([]common.Address, error)
	MarketInfo(ctx context.Context, addr common.Address) (chain.MarketInfo, error)
}

// Alerter is told about markets that resolved since the previous refresh.
type Alerter interface {
	MarketResolved(ctx context.Context, m domain.Market) error
}

// ReconcilerConfig tunes on-chain discovery.
type ReconcilerConfig struct {
	PageSize         int
	FetchConcurrency int
}

// Result is the outcome of one refresh.
type Result struct {
	Markets  []domain.Market `json:"markets"`
	OnChain  int             `json:"onChain"`
	Dropped  int             `json:"dropped"`
	Degraded bool            `json:"degraded"`
}

// Reconciler merges on-chain markets discovered through the registry with
// the off-chain set held by a MarketService.
type Reconciler struct {
	registry    Registry
	markets     *MarketService
	cache       domain.SnapshotCache
	alerts      Alerter
	bus         domain.SignalBus
	pageSize    uint64
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewReconciler creates a Reconciler. registry may be nil when no chain is
// configured; every refresh then serves the off-chain set. cache, alerts and
// bus are optional.
func NewReconciler(
	registry Registry,
	markets *MarketService,
	cache domain.SnapshotCache,
	alerts Alerter,
	bus domain.SignalBus,
	cfg ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	pageSize := uint64(chain.MaxPageSize)
	if cfg.PageSize > 0 && cfg.PageSize < chain.MaxPageSize {
		pageSize = uint64(cfg.PageSize)
	}
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Reconciler{
		registry:    registry,
		markets:     markets,
		cache:       cache,
		alerts:      alerts,
		bus:         bus,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "reconciler")),
		now:         time.Now,
	}
}

// WarmStart loads the last cached on-chain snapshot into the repository so
// the feed is populated before the first refresh completes.
func (r *Reconciler) WarmStart(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	cached, at, err := r.cache.LoadOnChain(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: warm start: %w", err)
	}
	r.markets.ReplaceOnChain(cached)
	r.logger.InfoContext(ctx, "loaded cached on-chain markets",
		slog.Int("count", len(cached)),
		slog.Duration("age", r.now().Sub(at)),
	)
	return nil
}

// Refresh rebuilds the feed. It never fails: when the registry cannot be
// read the repository keeps its last known on-chain subset, the result is
// the feed the repository serves and Degraded is set, and
// markets that fail to load are dropped individually. A successful refresh
// replaces the repository's on-chain subset.
func (r *Reconciler) Refresh(ctx context.Context) Result {
	start := r.now()

	addrs, err := r.discover(ctx)
	if err != nil {
		feed := r.markets.Markets()
		res := Result{Markets: feed, OnChain: countOnChain(feed), Degraded: true}
		r.logger.WarnContext(ctx, "registry unavailable, keeping last known markets",
			slog.Int("on_chain", res.OnChain),
			slog.String("error", err.Error()),
		)
		r.publishRefreshed(ctx, res)
		return res
	}

	onChain, dropped := r.fetchAll(ctx, addrs)
	prev := r.markets.ReplaceOnChain(onChain)
	r.alertResolved(ctx, prev, onChain)
	r.storeSnapshot(ctx, onChain)

	res := Result{
		Markets: append(append([]domain.Market{}, onChain...), r.markets.OffChain()...),
		OnChain: len(onChain),
		Dropped: dropped,
	}
	r.publishRefreshed(ctx, res)
	r.logger.InfoContext(ctx, "feed refreshed",
		slog.Int("on_chain", res.OnChain),
		slog.Int("dropped", dropped),
		slog.Int("total", len(res.Markets)),
		slog.Duration("took", r.now().Sub(start)),
	)
	return res
}

func countOnChain(ms []domain.Market) int {
	n := 0
	for _, m := range ms {
		if m.IsOnChain {
			n++
		}
	}
	return n
}

func (r *Reconciler) discover(ctx context.Context) ([]common.Address, error) {
	if r.registry == nil {
		return nil, fmt.Errorf("reconciler: %w", domain.ErrProviderUnavailable)
	}
	count, err := r.registry.MarketCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	addrs, err := r.registry.MarketAddresses(ctx, 0, min(count, r.pageSize))
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// fetchAll loads every address concurrently. Order follows addrs; failed
// markets are logged and left out.
func (r *Reconciler) fetchAll(ctx context.Context, addrs []common.Address) ([]domain.Market, int) {
	results := make([]*domain.Market, len(addrs))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			info, err := r.registry.MarketInfo(ctx, addr)
			if err == nil {
				var m domain.Market
				if m, err = Normalize(addr, info, r.now()); err == nil {
					results[i] = &m
					return nil
				}
			}
			r.logger.WarnContext(ctx, "dropping on-chain market",
				slog.String("address", addr.Hex()),
				slog.String("error", err.Error()),
			)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Market, 0, len(addrs))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, len(addrs) - len(out)
}

func (r *Reconciler) alertResolved(ctx context.Context, prev, next []domain.Market) {
	before := make(map[string]domain.MarketStatus, len(prev))
	for _, m := range prev {
		before[m.ID] = m.Status
	}
	for _, m := range next {
		status, seen := before[m.ID]
		if !seen || status == domain.MarketStatusResolved || m.Status != domain.MarketStatusResolved {
			continue
		}
		r.logger.InfoContext(ctx, "market resolved",
			slog.String("market_id", m.ID),
			slog.String("resolution", string(*m.Resolution)),
		)
		publish(ctx, r.bus, r.logger, domain.ChannelMarkets, FeedEvent{Type: EventMarketResolved, Market: &m, At: r.now().UTC()})
		if r.alerts != nil {
			if err := r.alerts.MarketResolved(ctx, m); err != nil {
				r.logger.WarnContext(ctx, "resolution alert failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (r *Reconciler) storeSnapshot(ctx context.Context, onChain []domain.Market) {
	if r.cache == nil {
		return
	}
	if err := r.cache.StoreOnChain(ctx, onChain); err != nil {
		r.logger.WarnContext(ctx, "snapshot cache write failed", slog.String("error", err.Error()))
	}
}

func (r *Reconciler) publishRefreshed(ctx context.Context, res Result) {
	publish(ctx, r.bus, r.logger, domain.ChannelMarkets, FeedEvent{
		Type:     EventFeedRefreshed,
		OnChain:  res.OnChain,
		OffChain: len(res.Markets) - res.OnChain,
		Dropped:  res.Dropped,
		Degraded: res.Degraded,
		At:       r.now().UTC(),
	})
}
