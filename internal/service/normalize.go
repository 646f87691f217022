package service

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// Contract status and outcome codes.
const (
	statusResolved = 2
	outcomeYes     = 1
	outcomeNo      = 2
)

// OnChainID derives the stable market id of a contract address.
func OnChainID(addr common.Address) string {
	return "chain-" + strings.ToLower(addr.Hex())
}

// Normalize decodes a getMarketInfo tuple into a Market. Structurally
// invalid tuples return ErrMalformedMarket; an unknown category becomes
// CategoryOther.
func Normalize(addr common.Address, info chain.MarketInfo, now time.Time) (domain.Market, error) {
	fail := func(reason string) (domain.Market, error) {
		return domain.Market{}, fmt.Errorf("normalize %s: %s: %w", addr.Hex(), reason, domain.ErrMalformedMarket)
	}

	question := strings.TrimSpace(info.Question)
	if question == "" {
		return fail("empty question")
	}
	if !fitsInt64(info.EndTime) || info.EndTime.Sign() < 0 || info.EndTime.Int64() > math.MaxInt64/1000 {
		return fail("end time out of range")
	}
	if !fitsInt64(info.Participants) || info.Participants.Sign() < 0 {
		return fail("participant count out of range")
	}
	if info.YesPrice == nil || !info.YesPrice.IsUint64() || info.YesPrice.Uint64() > 100 {
		return fail("yes price out of range")
	}
	if info.NoPrice == nil || !info.NoPrice.IsUint64() || info.YesPrice.Uint64()+info.NoPrice.Uint64() != 100 {
		return fail(fmt.Sprintf("prices yes=%s no=%s do not sum to 100", info.YesPrice, info.NoPrice))
	}
	if info.TotalVolume == nil || info.TotalVolume.Sign() < 0 {
		return fail("negative volume")
	}

	endDate := info.EndTime.Int64() * 1000
	yes := int(info.YesPrice.Uint64())
	volume := chain.ToEther(info.TotalVolume)

	m := domain.Market{
		ID:             OnChainID(addr),
		Address:        addr.Hex(),
		IsOnChain:      true,
		Question:       question,
		Description:    strings.TrimSpace(info.Description),
		Category:       domain.ParseCategory(info.Category),
		Tags:           []string{},
		Creator:        info.Creator.Hex(),
		EndDate:        endDate,
		YesPrice:       yes,
		NoPrice:        int(info.NoPrice.Uint64()),
		TotalYesShares: volume * float64(yes) / 100,
		TotalNoShares:  volume * float64(100-yes) / 100,
		Volume:         volume,
		Participants:   info.Participants.Int64(),
	}

	switch {
	case info.Status == statusResolved:
		var r domain.Outcome
		switch info.Outcome {
		case outcomeYes:
			r = domain.OutcomeYes
		case outcomeNo:
			r = domain.OutcomeNo
		default:
			return fail(fmt.Sprintf("resolved with outcome code %d", info.Outcome))
		}
		m.Status = domain.MarketStatusResolved
		m.Resolution = &r
	case m.PastDeadline(now):
		m.Status = domain.MarketStatusExpired
	default:
		m.Status = domain.MarketStatusActive
	}
	return m, nil
}

func fitsInt64(n *big.Int) bool {
	return n != nil && n.IsInt64()
}
