package domain

import "context"

// MarketStore persists off-chain markets so locally created markets survive
// a restart. On-chain markets are never stored here; the chain is their
// source of truth.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	ListOffChain(ctx context.Context) ([]Market, error)
}
