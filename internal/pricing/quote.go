package pricing

import (
	"fmt"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// TradeQuote estimates what a buy would return at the current price.
type TradeQuote struct {
	Outcome         domain.Outcome `json:"outcome"`
	Amount          float64        `json:"amount"`
	Price           int            `json:"price"`
	EstimatedShares float64        `json:"estimatedShares"`
	PotentialPayout float64        `json:"potentialPayout"`
}

// Quote prices amount at the selected side's current probability. Each
// winning share pays out one unit, so the payout equals the share estimate.
func Quote(m domain.Market, outcome domain.Outcome, amount float64) (TradeQuote, error) {
	if err := validAmount(amount); err != nil {
		return TradeQuote{}, err
	}

	var price int
	switch outcome {
	case domain.OutcomeYes:
		price = m.YesPrice
	case domain.OutcomeNo:
		price = m.NoPrice
	default:
		return TradeQuote{}, fmt.Errorf("pricing: quote: %w", domain.ErrInvalidOutcome)
	}
	if price <= 0 {
		return TradeQuote{}, fmt.Errorf("pricing: quote %s on market %s: %w", outcome, m.ID, domain.ErrZeroPrice)
	}

	shares := amount / (float64(price) / 100)
	return TradeQuote{
		Outcome:         outcome,
		Amount:          amount,
		Price:           price,
		EstimatedShares: shares,
		PotentialPayout: shares,
	}, nil
}
