package domain

import (
	"strings"
	"time"
)

// Category is the closed set of market categories.
type Category string

const (
	CategoryCrypto        Category = "crypto"
	CategoryPolitics      Category = "politics"
	CategorySports        Category = "sports"
	CategoryTech          Category = "tech"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// CategoryAll selects every category in filter queries.
const CategoryAll Category = "all"

// Categories lists the valid categories in display order.
var Categories = []Category{
	CategoryCrypto,
	CategoryPolitics,
	CategorySports,
	CategoryTech,
	CategoryEntertainment,
	CategoryOther,
}

// ParseCategory maps a free-form string to a Category. Unknown values
// normalize to CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusExpired  MarketStatus = "expired"
)

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// ParseOutcome accepts "yes" or "no" in any case.
func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeYes:
		return OutcomeYes, true
	case OutcomeNo:
		return OutcomeNo, true
	}
	return "", false
}

// Market is a binary-outcome prediction market. Prices are whole percentages
// and YesPrice+NoPrice is always 100. Resolution is set only when Status is
// MarketStatusResolved.
type Market struct {
	ID        string `json:"id"`
	Address   string `json:"address,omitempty"`
	IsOnChain bool   `json:"isOnChain"`

	Question    string    `json:"question"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	EndDate     int64     `json:"endDate"` // epoch milliseconds

	YesPrice       int     `json:"yesPrice"`
	NoPrice        int     `json:"noPrice"`
	TotalYesShares float64 `json:"totalYesShares"`
	TotalNoShares  float64 `json:"totalNoShares"`
	Volume         float64 `json:"volume"`
	Liquidity      float64 `json:"liquidity"`
	Participants   int64   `json:"participants"`

	Status     MarketStatus `json:"status"`
	Resolution *Outcome     `json:"resolution,omitempty"`
}

// EndTime returns EndDate as a time.Time.
func (m Market) EndTime() time.Time {
	return time.UnixMilli(m.EndDate)
}

// PastDeadline reports whether the resolution deadline has passed at now.
func (m Market) PastDeadline(now time.Time) bool {
	return now.UnixMilli() > m.EndDate
}

// Clone returns a copy that shares no mutable state with m.
func (m Market) Clone() Market {
	out := m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Resolution != nil {
		r := *m.Resolution
		out.Resolution = &r
	}
	return out
}

// MarketDraft carries the caller-supplied fields of a new market.
type MarketDraft struct {
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Creator     string   `json:"creator"`
	EndDate     int64    `json:"endDate"`
}
