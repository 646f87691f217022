// Package pricing mirrors the visible effect of a trade on a binary market's
// share balances and prices. The authoritative curve runs on chain; results
// here are advisory and exist to give immediate feedback.
package pricing

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// ApplyTrade returns the market state after buying amount units of outcome.
// One unit of notional mints one share of the chosen side. The input market
// is never modified; on error the zero Market is returned.
//
// Participants is incremented once per trade with no deduplication by trader.
func ApplyTrade(m domain.Market, outcome domain.Outcome, amount float64) (domain.Market, error) {
	if err := validAmount(amount); err != nil {
		return domain.Market{}, err
	}
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return domain.Market{}, fmt.Errorf("pricing: apply trade: %w", domain.ErrInvalidOutcome)
	}
	if m.Status != domain.MarketStatusActive {
		return domain.Market{}, fmt.Errorf("pricing: apply trade on %s market %s: %w", m.Status, m.ID, domain.ErrMarketInactive)
	}

	next := m.Clone()
	if outcome == domain.OutcomeYes {
		next.TotalYesShares += amount
	} else {
		next.TotalNoShares += amount
	}
	total := next.TotalYesShares + next.TotalNoShares

	yes := int(math.Round(100 * next.TotalYesShares / total))
	no := int(math.Round(100 * next.TotalNoShares / total))

	if outcome == domain.OutcomeYes {
		yes = settle(yes, no, m.YesPrice)
		no = 100 - yes
	} else {
		no = settle(no, yes, m.NoPrice)
		yes = 100 - no
	}

	next.YesPrice = yes
	next.NoPrice = no
	next.Volume += amount
	next.Participants++
	return next, nil
}

// settle returns the traded side's price. Any rounding drift away from 100
// is absorbed by the traded side, and a buy never lowers the price of the
// side that was bought.
func settle(traded, other, before int) int {
	if traded+other != 100 {
		traded = 100 - other
	}
	if traded < before {
		traded = before
	}
	return clamp(traded)
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("pricing: amount %v: %w", amount, domain.ErrInvalidAmount)
	}
	return nil
}
