package domain

import (
	"context"
	"time"
)

// SnapshotCache keeps the last successfully reconciled on-chain markets so a
// cold start can serve them before the chain answers.
type SnapshotCache interface {
	StoreOnChain(ctx context.Context, markets []Market) error
	LoadOnChain(ctx context.Context) ([]Market, time.Time, error)
}

// SignalBus provides pub/sub for feed and session events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channel names.
const (
	ChannelMarkets = "markets"
	ChannelSession = "session"
)
