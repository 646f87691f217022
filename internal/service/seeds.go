package service

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

const day = 24 * time.Hour

type seed struct {
	question, description string
	category              domain.Category
	creator               string
	age, remaining        time.Duration
	yes                   int
	volume, liquidity     float64
	yesShares, noShares   float64
	participants          int64
	tags                  []string
	resolution            domain.Outcome
}

var demoSeeds = []seed{
	{
		question:    "Will Bitcoin exceed $150,000 by end of 2026?",
		description: "This market resolves YES if the price of Bitcoin (BTC) reaches or exceeds $150,000 USD on any major exchange before December 31, 2026 23:59 UTC.",
		category:    domain.CategoryCrypto, creator: "0x1234...abcd",
		age: 3 * day, remaining: 300 * day, yes: 42,
		volume: 125000, liquidity: 45000, yesShares: 52000, noShares: 73000, participants: 342,
		tags: []string{"bitcoin", "crypto", "price"},
	},
	{
		question:    "Will Ethereum ETF inflows exceed $50B in 2026?",
		description: "Resolves YES if total net inflows into all US-listed Ethereum spot ETFs exceed $50 billion USD by December 31, 2026.",
		category:    domain.CategoryCrypto, creator: "0x5678...efgh",
		age: 7 * day, remaining: 250 * day, yes: 35,
		volume: 89000, liquidity: 32000, yesShares: 31000, noShares: 58000, participants: 218,
		tags: []string{"ethereum", "etf", "institutional"},
	},
	{
		question:    "Will AI replace 10% of software engineering jobs by 2027?",
		description: "This market resolves YES if credible industry reports indicate that AI tools have directly replaced at least 10% of software engineering positions globally by January 1, 2027.",
		category:    domain.CategoryTech, creator: "0x9abc...ijkl",
		age: 14 * day, remaining: 600 * day, yes: 28,
		volume: 210000, liquidity: 78000, yesShares: 59000, noShares: 151000, participants: 567,
		tags: []string{"ai", "jobs", "technology"},
	},
	{
		question:    "Will the US Federal Reserve cut rates before July 2026?",
		description: "Resolves YES if the Federal Reserve announces at least one interest rate cut before July 1, 2026.",
		category:    domain.CategoryPolitics, creator: "0xdef0...mnop",
		age: 2 * day, remaining: 120 * day, yes: 67,
		volume: 340000, liquidity: 120000, yesShares: 228000, noShares: 112000, participants: 891,
		tags: []string{"fed", "rates", "economy"},
	},
	{
		question:    "Will a Pharos-based DeFi protocol reach $1B TVL?",
		description: "Resolves YES if any DeFi protocol built on Pharos Network achieves $1 billion or more in Total Value Locked before December 31, 2026.",
		category:    domain.CategoryCrypto, creator: "0x1111...2222",
		age: 1 * day, remaining: 365 * day, yes: 15,
		volume: 45000, liquidity: 18000, yesShares: 6750, noShares: 38250, participants: 156,
		tags: []string{"pharos", "defi", "tvl"},
	},
	{
		question:    "Will the next FIFA World Cup final have over 3 goals?",
		description: "Resolves YES if the 2026 FIFA World Cup final match ends with a combined total of more than 3 goals (excluding penalty shootout).",
		category:    domain.CategorySports, creator: "0x3333...4444",
		age: 5 * day, remaining: 180 * day, yes: 38,
		volume: 67000, liquidity: 25000, yesShares: 25460, noShares: 41540, participants: 423,
		tags: []string{"fifa", "worldcup", "football"},
	},
	{
		question:    "Will Apple release AR glasses in 2026?",
		description: "Resolves YES if Apple officially announces and begins selling augmented reality glasses (not Vision Pro) before December 31, 2026.",
		category:    domain.CategoryTech, creator: "0x5555...6666",
		age: 10 * day, remaining: 300 * day, yes: 22,
		volume: 156000, liquidity: 55000, yesShares: 34320, noShares: 121680, participants: 634,
		tags: []string{"apple", "ar", "hardware"},
	},
	{
		question:    "Will GTA 6 release before October 2025?",
		description: "Resolves YES if Grand Theft Auto VI is officially released and available for purchase before October 1, 2025.",
		category:    domain.CategoryEntertainment, creator: "0x7777...8888",
		age: 30 * day, remaining: -5 * day, yes: 8,
		volume: 520000, liquidity: 0, yesShares: 41600, noShares: 478400, participants: 2341,
		tags:       []string{"gta6", "gaming", "rockstar"},
		resolution: domain.OutcomeNo,
	},
}

// DemoMarkets returns the demo off-chain set, ids demo-1 through demo-8, with
// dates relative to now.
func DemoMarkets(now time.Time) []domain.Market {
	out := make([]domain.Market, 0, len(demoSeeds))
	for i, s := range demoSeeds {
		m := domain.Market{
			ID:             "demo-" + strconv.Itoa(i+1),
			Question:       s.question,
			Description:    s.description,
			Category:       s.category,
			Tags:           append([]string(nil), s.tags...),
			Creator:        s.creator,
			CreatedAt:      now.Add(-s.age).UTC(),
			EndDate:        now.Add(s.remaining).UnixMilli(),
			YesPrice:       s.yes,
			NoPrice:        100 - s.yes,
			TotalYesShares: s.yesShares,
			TotalNoShares:  s.noShares,
			Volume:         s.volume,
			Liquidity:      s.liquidity,
			Participants:   s.participants,
			Status:         domain.MarketStatusActive,
		}
		if s.resolution != "" {
			r := s.resolution
			m.Status = domain.MarketStatusResolved
			m.Resolution = &r
		}
		out = append(out, m)
	}
	return out
}
