package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// Feed event types published on domain.ChannelMarkets.
const (
	EventMarketCreated  = "market_created"
	EventMarketUpdated  = "market_updated"
	EventMarketResolved = "market_resolved"
	EventFeedRefreshed  = "feed_refreshed"
)

// FeedEvent is the payload published on the markets channel.
type FeedEvent struct {
	Type     string         `json:"type"`
	Market   *domain.Market `json:"market,omitempty"`
	OnChain  int            `json:"onChain,omitempty"`
	OffChain int            `json:"offChain,omitempty"`
	Dropped  int            `json:"dropped,omitempty"`
	Degraded bool           `json:"degraded,omitempty"`
	At       time.Time      `json:"at"`
}

func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, v any) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
