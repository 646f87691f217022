// Package notify delivers operator alerts for market resolutions and wallet
// session invalidations to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// Alert event types accepted by the events filter.
const (
	EventMarketResolved     = "market_resolved"
	EventSessionInvalidated = "session_invalidated"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans alerts out to every Sender. Only event types in the allowed
// set are delivered; an empty set allows all.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// MarketResolved announces a market that moved to resolved.
func (n *Notifier) MarketResolved(ctx context.Context, m domain.Market) error {
	outcome := "unknown"
	if m.Resolution != nil {
		outcome = strings.ToUpper(string(*m.Resolution))
	}
	msg := fmt.Sprintf("%s\nOutcome: %s\nVolume: %.2f PHRS\nParticipants: %d",
		m.Question, outcome, m.Volume, m.Participants)
	return n.Notify(ctx, EventMarketResolved, "Market resolved", msg)
}

// SessionInvalidated announces that the wallet switched networks under a
// live session.
func (n *Notifier) SessionInvalidated(ctx context.Context, chainID uint64) error {
	msg := fmt.Sprintf("Wallet moved to chain %d. The session was reset and markets reloaded.", chainID)
	return n.Notify(ctx, EventSessionInvalidated, "Wallet session invalidated", msg)
}

// Notify delivers an alert when event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch tries every sender and joins the failures.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
