package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/pricing"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

const (
	featuredLimit     = 3
	trendingLimit     = 5
	maxQuestionLength = 200
)

// Authorizer is the session context passed to operations that may need a
// connected wallet. *session.Session satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context) (session.Authorization, error)
	Account() string
}

// Trader submits on-chain writes. *chain.Gateway satisfies it.
type Trader interface {
	Buy(ctx context.Context, signer chain.Signer, market common.Address, outcome domain.Outcome, value *big.Int) (common.Hash, error)
	CreateMarket(ctx context.Context, signer chain.Signer, question, description, category string, endTime time.Time) (common.Hash, error)
}

// MarketService holds the in-process market set: the on-chain subset
// replaced wholesale by reconciliation and the off-chain subset mutated
// locally. Derived views are recomputed on every read.
type MarketService struct {
	store  domain.MarketStore
	bus    domain.SignalBus
	trader Trader
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	onChain  []domain.Market
	offChain []domain.Market
}

// NewMarketService creates a MarketService. store, bus and trader are
// optional; pass nil to run without persistence, events or chain writes.
func NewMarketService(
	store domain.MarketStore,
	bus domain.SignalBus,
	trader Trader,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		store:  store,
		bus:    bus,
		trader: trader,
		logger: logger.With(slog.String("component", "market_service")),
		now:    time.Now,
		newID:  func() string { return "local-" + uuid.NewString() },
	}
}

// Seed appends markets to the off-chain set without persisting them.
func (s *MarketService) Seed(markets []domain.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range markets {
		s.offChain = append(s.offChain, m.Clone())
	}
}

// LoadOffChain loads persisted markets ahead of any seeded ones. Stored
// entries replace seeds with the same id.
func (s *MarketService) LoadOffChain(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	stored, err := s.store.ListOffChain(ctx)
	if err != nil {
		return fmt.Errorf("market_service: load off-chain: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(stored))
	merged := make([]domain.Market, 0, len(stored)+len(s.offChain))
	for _, m := range stored {
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range s.offChain {
		if _, dup := seen[m.ID]; !dup {
			merged = append(merged, m)
		}
	}
	s.offChain = merged

	s.logger.InfoContext(ctx, "loaded off-chain markets", slog.Int("count", len(stored)))
	return nil
}

// GetMarket returns the market with id.
func (s *MarketService) GetMarket(id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, _, ok := s.findLocked(id)
	if !ok {
		return domain.Market{}, fmt.Errorf("market_service: market %q: %w", id, domain.ErrNotFound)
	}
	return effective(m, s.now()), nil
}

// Markets returns the full feed: on-chain markets first, then off-chain
// markets newest first.
func (s *MarketService) Markets() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]domain.Market, 0, len(s.onChain)+len(s.offChain))
	for _, m := range s.onChain {
		out = append(out, effective(m, now))
	}
	for _, m := range s.offChain {
		out = append(out, effective(m, now))
	}
	return out
}

// OffChain returns the off-chain subset.
func (s *MarketService) OffChain() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]domain.Market, 0, len(s.offChain))
	for _, m := range s.offChain {
		out = append(out, effective(m, now))
	}
	return out
}

// ReplaceOnChain swaps the on-chain subset for markets and returns the
// previous subset.
func (s *MarketService) ReplaceOnChain(markets []domain.Market) []domain.Market {
	next := make([]domain.Market, len(markets))
	for i, m := range markets {
		next[i] = m.Clone()
	}
	s.mu.Lock()
	prev := s.onChain
	s.onChain = next
	s.mu.Unlock()
	return prev
}

// Featured returns the active markets with the highest volume.
func (s *MarketService) Featured() []domain.Market {
	active := s.active()
	slices.SortStableFunc(active, func(a, b domain.Market) int {
		return cmpDesc(a.Volume, b.Volume)
	})
	return head(active, featuredLimit)
}

// Trending returns the active markets with the most participants.
func (s *MarketService) Trending() []domain.Market {
	active := s.active()
	slices.SortStableFunc(active, func(a, b domain.Market) int {
		return cmpDesc(a.Participants, b.Participants)
	})
	return head(active, trendingLimit)
}

// FilterByCategory returns active markets in cat, or every active market for
// CategoryAll.
func (s *MarketService) FilterByCategory(cat domain.Category) []domain.Market {
	active := s.active()
	if cat == domain.CategoryAll {
		return active
	}
	out := active[:0]
	for _, m := range active {
		if m.Category == cat {
			out = append(out, m)
		}
	}
	return out
}

// Quote estimates the shares amount would buy on market id.
func (s *MarketService) Quote(id string, outcome domain.Outcome, amount float64) (pricing.TradeQuote, error) {
	m, err := s.GetMarket(id)
	if err != nil {
		return pricing.TradeQuote{}, err
	}
	if m.Status != domain.MarketStatusActive {
		return pricing.TradeQuote{}, fmt.Errorf("market_service: quote %s: %w", id, domain.ErrMarketInactive)
	}
	return pricing.Quote(m, outcome, amount)
}

// CreateMarket validates draft and prepends a new off-chain market. The
// creator is the connected account when auth has one, then draft.Creator,
// then the zero address.
func (s *MarketService) CreateMarket(ctx context.Context, auth Authorizer, draft domain.MarketDraft) (domain.Market, error) {
	now := s.now()
	d, err := validateDraft(draft, now)
	if err != nil {
		return domain.Market{}, err
	}

	creator := strings.TrimSpace(d.Creator)
	if auth != nil {
		if account := auth.Account(); account != "" {
			creator = account
		}
	}
	if creator == "" {
		creator = common.Address{}.Hex()
	}

	m := domain.Market{
		ID:          s.newID(),
		Question:    d.Question,
		Description: d.Description,
		Category:    domain.ParseCategory(d.Category),
		Tags:        d.Tags,
		Creator:     creator,
		CreatedAt:   now.UTC(),
		EndDate:     d.EndDate,
		YesPrice:    50,
		NoPrice:     50,
		Status:      domain.MarketStatusActive,
	}

	s.mu.Lock()
	s.offChain = append([]domain.Market{m}, s.offChain...)
	s.mu.Unlock()

	s.persist(ctx, m)
	s.publishMarket(ctx, EventMarketCreated, m)
	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("category", string(m.Category)),
	)
	return m.Clone(), nil
}

// CreateOnChainMarket validates draft and submits it to the factory. The
// market joins the feed once a later refresh discovers it.
func (s *MarketService) CreateOnChainMarket(ctx context.Context, auth Authorizer, draft domain.MarketDraft) (string, error) {
	d, err := validateDraft(draft, s.now())
	if err != nil {
		return "", err
	}
	if s.trader == nil {
		return "", fmt.Errorf("market_service: create on chain: %w", domain.ErrProviderUnavailable)
	}
	if auth == nil {
		return "", fmt.Errorf("market_service: create on chain: %w", domain.ErrNotConnected)
	}
	a, err := auth.Authorize(ctx)
	if err != nil {
		return "", fmt.Errorf("market_service: create on chain: %w", err)
	}
	hash, err := s.trader.CreateMarket(ctx, a.Signer, d.Question, d.Description,
		string(domain.ParseCategory(d.Category)), time.UnixMilli(d.EndDate))
	if err != nil {
		return "", fmt.Errorf("market_service: create on chain: %w", err)
	}
	return hash.Hex(), nil
}

// BuyShares applies a trade to market id and returns the committed market.
// Trades on on-chain markets need an authorized session; the transaction is
// submitted first and the local update applied optimistically afterwards.
// Once the transaction is sent BuyShares reports success even when the local
// update cannot be applied. The returned hash is empty for off-chain markets.
func (s *MarketService) BuyShares(ctx context.Context, auth Authorizer, id string, outcome domain.Outcome, amount float64) (domain.Market, string, error) {
	current, err := s.GetMarket(id)
	if err != nil {
		return domain.Market{}, "", err
	}
	if _, err := pricing.ApplyTrade(current, outcome, amount); err != nil {
		return domain.Market{}, "", err
	}

	var txHash string
	if current.IsOnChain {
		txHash, err = s.submitBuy(ctx, auth, current, outcome, amount)
		if err != nil {
			return domain.Market{}, "", err
		}
	}

	next, err := s.commitTrade(id, outcome, amount)
	if err != nil {
		if txHash == "" {
			return domain.Market{}, "", err
		}
		// The transaction is out; reporting failure would invite a second
		// buy. The next refresh brings the chain's view of the market.
		s.logger.WarnContext(ctx, "optimistic update skipped after buy",
			slog.String("market_id", id),
			slog.String("tx_hash", txHash),
			slog.String("error", err.Error()),
		)
		if latest, gerr := s.GetMarket(id); gerr == nil {
			return latest, txHash, nil
		}
		return current, txHash, nil
	}

	if !next.IsOnChain {
		s.persist(ctx, next)
	}
	s.publishMarket(ctx, EventMarketUpdated, next)
	return next, txHash, nil
}

func (s *MarketService) submitBuy(ctx context.Context, auth Authorizer, m domain.Market, outcome domain.Outcome, amount float64) (string, error) {
	if s.trader == nil {
		return "", fmt.Errorf("market_service: buy %s: %w", m.ID, domain.ErrProviderUnavailable)
	}
	if auth == nil {
		return "", fmt.Errorf("market_service: buy %s: %w", m.ID, domain.ErrNotConnected)
	}
	a, err := auth.Authorize(ctx)
	if err != nil {
		return "", fmt.Errorf("market_service: buy %s: %w", m.ID, err)
	}
	hash, err := s.trader.Buy(ctx, a.Signer, common.HexToAddress(m.Address), outcome, chain.ToWei(amount))
	if err != nil {
		return "", fmt.Errorf("market_service: buy %s: %w", m.ID, err)
	}
	return hash.Hex(), nil
}

// commitTrade applies the trade to the latest stored value of id and
// replaces it.
func (s *MarketService) commitTrade(id string, outcome domain.Outcome, amount float64) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, slot, ok := s.findLocked(id)
	if !ok {
		return domain.Market{}, fmt.Errorf("market_service: market %q: %w", id, domain.ErrNotFound)
	}
	next, err := pricing.ApplyTrade(effective(m, s.now()), outcome, amount)
	if err != nil {
		return domain.Market{}, err
	}
	*slot = next
	return next.Clone(), nil
}

func (s *MarketService) active() []domain.Market {
	all := s.Markets()
	out := all[:0]
	for _, m := range all {
		if m.Status == domain.MarketStatusActive {
			out = append(out, m)
		}
	}
	return out
}

// findLocked returns the market and a pointer to its slot. Callers hold mu.
func (s *MarketService) findLocked(id string) (domain.Market, *domain.Market, bool) {
	for i := range s.onChain {
		if s.onChain[i].ID == id {
			return s.onChain[i], &s.onChain[i], true
		}
	}
	for i := range s.offChain {
		if s.offChain[i].ID == id {
			return s.offChain[i], &s.offChain[i], true
		}
	}
	return domain.Market{}, nil, false
}

func (s *MarketService) persist(ctx context.Context, m domain.Market) {
	if s.store == nil {
		return
	}
	if err := s.store.Upsert(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "persist market failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) publishMarket(ctx context.Context, typ string, m domain.Market) {
	publish(ctx, s.bus, s.logger, domain.ChannelMarkets, FeedEvent{Type: typ, Market: &m, At: s.now().UTC()})
}

// effective reports an active market whose deadline has passed as expired.
func effective(m domain.Market, now time.Time) domain.Market {
	out := m.Clone()
	if out.Status == domain.MarketStatusActive && out.PastDeadline(now) {
		out.Status = domain.MarketStatusExpired
	}
	return out
}

func validateDraft(d domain.MarketDraft, now time.Time) (domain.MarketDraft, error) {
	d.Question = strings.TrimSpace(d.Question)
	d.Description = strings.TrimSpace(d.Description)
	switch {
	case d.Question == "":
		return d, fmt.Errorf("market_service: question is required: %w", domain.ErrInvalidDraft)
	case utf8.RuneCountInString(d.Question) > maxQuestionLength:
		return d, fmt.Errorf("market_service: question exceeds %d characters: %w", maxQuestionLength, domain.ErrInvalidDraft)
	case d.Description == "":
		return d, fmt.Errorf("market_service: resolution criteria are required: %w", domain.ErrInvalidDraft)
	case d.EndDate <= now.UnixMilli():
		return d, fmt.Errorf("market_service: end date must be in the future: %w", domain.ErrInvalidDraft)
	}
	d.Tags = normalizeTags(d.Tags)
	return d, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func cmpDesc[T int64 | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func head(ms []domain.Market, n int) []domain.Market {
	if len(ms) > n {
		return ms[:n]
	}
	return ms
}
