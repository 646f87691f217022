package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/pricing"
	"github.com/alanyoungcy/pharosbet/internal/service"
)

// MarketService is the part of *service.MarketService the market endpoints
// use.
type MarketService interface {
	Markets() []domain.Market
	Featured() []domain.Market
	Trending() []domain.Market
	FilterByCategory(cat domain.Category) []domain.Market
	GetMarket(id string) (domain.Market, error)
	Quote(id string, outcome domain.Outcome, amount float64) (pricing.TradeQuote, error)
	CreateMarket(ctx context.Context, auth service.Authorizer, draft domain.MarketDraft) (domain.Market, error)
	CreateOnChainMarket(ctx context.Context, auth service.Authorizer, draft domain.MarketDraft) (string, error)
	BuyShares(ctx context.Context, auth service.Authorizer, id string, outcome domain.Outcome, amount float64) (domain.Market, string, error)
}

// MarketHandler serves the market feed, quotes, trades and market creation.
type MarketHandler struct {
	markets MarketService
	auth    service.Authorizer
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler. auth is the wallet session that
// authorizes on-chain writes.
func NewMarketHandler(markets MarketService, auth service.Authorizer, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, auth: auth, logger: logger}
}

type marketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int             `json:"total"`
}

func listOf(ms []domain.Market) marketsResponse {
	if ms == nil {
		ms = []domain.Market{}
	}
	return marketsResponse{Markets: ms, Total: len(ms)}
}

// ListMarkets returns the whole feed, or the active markets in one category.
// GET /api/markets?category=crypto
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	if raw == "" {
		writeJSON(w, http.StatusOK, listOf(h.markets.Markets()))
		return
	}
	cat := domain.CategoryAll
	if raw != string(domain.CategoryAll) {
		cat = domain.ParseCategory(raw)
		if string(cat) != raw {
			writeError(w, http.StatusBadRequest, "unknown category "+raw)
			return
		}
	}
	writeJSON(w, http.StatusOK, listOf(h.markets.FilterByCategory(cat)))
}

// GET /api/markets/featured
func (h *MarketHandler) Featured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listOf(h.markets.Featured()))
}

// GET /api/markets/trending
func (h *MarketHandler) Trending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listOf(h.markets.Trending()))
}

// GetMarket returns one market.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.markets.GetMarket(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, h.logger, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type createRequest struct {
	domain.MarketDraft
	OnChain bool `json:"onChain"`
}

// CreateMarket adds an off-chain market, or submits one to the factory when
// onChain is set.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.OnChain {
		hash, err := h.markets.CreateOnChainMarket(r.Context(), h.auth, req.MarketDraft)
		if err != nil {
			writeDomainError(w, r, h.logger, "create market", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"txHash": hash})
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), h.auth, req.MarketDraft)
	if err != nil {
		writeDomainError(w, r, h.logger, "create market", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type tradeRequest struct {
	Outcome string  `json:"outcome"`
	Amount  float64 `json:"amount"`
}

func (h *MarketHandler) readTrade(w http.ResponseWriter, r *http.Request) (domain.Outcome, float64, bool) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", 0, false
	}
	outcome, ok := domain.ParseOutcome(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidOutcome.Error())
		return "", 0, false
	}
	return outcome, req.Amount, true
}

// Quote estimates shares and payout for a prospective trade.
// POST /api/markets/{id}/quote
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	outcome, amount, ok := h.readTrade(w, r)
	if !ok {
		return
	}
	q, err := h.markets.Quote(r.PathValue("id"), outcome, amount)
	if err != nil {
		writeDomainError(w, r, h.logger, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type tradeResponse struct {
	Market domain.Market `json:"market"`
	TxHash string        `json:"txHash,omitempty"`
}

// Trade buys shares of one outcome.
// POST /api/markets/{id}/trades
func (h *MarketHandler) Trade(w http.ResponseWriter, r *http.Request) {
	outcome, amount, ok := h.readTrade(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	m, hash, err := h.markets.BuyShares(r.Context(), h.auth, id, outcome, amount)
	if err != nil {
		writeDomainError(w, r, h.logger, "trade", err)
		return
	}
	h.logger.InfoContext(r.Context(), "trade applied",
		slog.String("market_id", id),
		slog.String("outcome", string(outcome)),
		slog.Float64("amount", amount),
		slog.String("tx_hash", hash),
	)
	writeJSON(w, http.StatusOK, tradeResponse{Market: m, TxHash: hash})
}
