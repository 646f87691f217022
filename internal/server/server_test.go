package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/server/handler"
	"github.com/alanyoungcy/pharosbet/internal/service"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSession struct {
	snap       session.Snapshot
	connectErr error
	switchErr  error
	account    string
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSession) Connect(context.Context) (session.Snapshot, error) {
	if f.connectErr != nil {
		return f.snap, f.connectErr
	}
	f.snap = session.Snapshot{State: session.StateConnected, Account: "0xabc", OnTargetChain: true}
	return f.snap, nil
}

func (f *fakeSession) Disconnect() { f.snap = session.Snapshot{State: session.StateDisconnected} }

func (f *fakeSession) SwitchToPharos(context.Context) error { return f.switchErr }

func (f *fakeSession) Authorize(context.Context) (session.Authorization, error) {
	return session.Authorization{}, domain.ErrNotConnected
}

func (f *fakeSession) Account() string { return f.account }

type fakeRefresher struct{ res service.Result }

func (f fakeRefresher) Run(context.Context) service.Result { return f.res }

type testServer struct {
	h       http.Handler
	markets *service.MarketService
	sess    *fakeSession
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	logger := discard()
	markets := service.NewMarketService(nil, nil, nil, logger)
	markets.Seed(service.DemoMarkets(time.Now()))
	sess := &fakeSession{snap: session.Snapshot{State: session.StateDisconnected}}
	refresher := fakeRefresher{res: service.Result{
		Markets:  make([]domain.Market, 10),
		OnChain:  2,
		Dropped:  1,
		Degraded: false,
	}}

	h := Routes(Config{APIKey: apiKey}, Handlers{
		Health:  handler.NewHealthHandler(nil, logger),
		Markets: handler.NewMarketHandler(markets, sess, logger),
		Session: handler.NewSessionHandler(sess, logger),
		Refresh: handler.NewRefreshHandler(refresher, logger),
	}, nil, logger)
	return &testServer{h: h, markets: markets, sess: sess}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type listBody struct {
	Markets []domain.Market `json:"markets"`
	Total   int             `json:"total"`
}

func marketIDs(ms []domain.Market) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestHealth_FailingDependency(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, discard())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, "secret")
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/markets", "").Code)
}

func TestListMarkets(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, decode[listBody](t, rec).Total)

	rec = s.do(t, http.MethodGet, "/api/markets?category=crypto", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"demo-1", "demo-2", "demo-5"}, marketIDs(decode[listBody](t, rec).Markets))

	rec = s.do(t, http.MethodGet, "/api/markets?category=all", "")
	assert.Equal(t, 7, decode[listBody](t, rec).Total)

	rec = s.do(t, http.MethodGet, "/api/markets?category=weather", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeaturedAndTrending(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/api/markets/featured", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"demo-4", "demo-3", "demo-7"}, marketIDs(decode[listBody](t, rec).Markets))

	rec = s.do(t, http.MethodGet, "/api/markets/trending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listBody](t, rec).Markets, 5)
}

func TestGetMarket(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/api/markets/demo-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo-2", decode[domain.Market](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/markets/nope", "").Code)
}

func TestQuote(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/api/markets/demo-1/quote", `{"outcome":"yes","amount":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[map[string]any](t, rec)
	assert.InDelta(t, 100.0, q["estimatedShares"], 1e-9)
	assert.InDelta(t, 100.0, q["potentialPayout"], 1e-9)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"zero amount", "/api/markets/demo-1/quote", `{"outcome":"yes","amount":0}`, http.StatusBadRequest},
		{"bad outcome", "/api/markets/demo-1/quote", `{"outcome":"maybe","amount":1}`, http.StatusBadRequest},
		{"unknown field", "/api/markets/demo-1/quote", `{"outcome":"yes","amount":1,"x":1}`, http.StatusBadRequest},
		{"resolved market", "/api/markets/demo-8/quote", `{"outcome":"yes","amount":1}`, http.StatusConflict},
		{"missing market", "/api/markets/nope/quote", `{"outcome":"yes","amount":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(t, http.MethodPost, tt.path, tt.body).Code)
		})
	}
}

func TestTrade_OffChain(t *testing.T) {
	s := newTestServer(t, "")
	before, err := s.markets.GetMarket("demo-1")
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/markets/demo-1/trades", `{"outcome":"YES","amount":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Market domain.Market `json:"market"`
		TxHash string        `json:"txHash"`
	}](t, rec)
	assert.Empty(t, body.TxHash)
	assert.Equal(t, before.Volume+100, body.Market.Volume)
	assert.Equal(t, before.Participants+1, body.Market.Participants)
	assert.Equal(t, 100, body.Market.YesPrice+body.Market.NoPrice)

	after, err := s.markets.GetMarket("demo-1")
	require.NoError(t, err)
	assert.Equal(t, body.Market.Volume, after.Volume)

	rec = s.do(t, http.MethodPost, "/api/markets/demo-8/trades", `{"outcome":"no","amount":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateMarket(t *testing.T) {
	s := newTestServer(t, "")
	s.sess.account = "0xfeed"
	end := time.Now().Add(48 * time.Hour).UnixMilli()

	body := `{"question":"  Will it snow?  ","description":"d","category":"Weather","tags":["A"," a ",""],"endDate":` +
		jsonInt(end) + `}`
	rec := s.do(t, http.MethodPost, "/api/markets", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[domain.Market](t, rec)
	assert.Equal(t, "Will it snow?", m.Question)
	assert.Equal(t, domain.CategoryOther, m.Category)
	assert.Equal(t, []string{"a"}, m.Tags)
	assert.Equal(t, "0xfeed", m.Creator)
	assert.Equal(t, 50, m.YesPrice)

	list := decode[listBody](t, s.do(t, http.MethodGet, "/api/markets", ""))
	assert.Equal(t, 9, list.Total)

	rec = s.do(t, http.MethodPost, "/api/markets", `{"question":"","description":"d","endDate":`+jsonInt(end)+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/markets", `{"question":"q","description":"d","endDate":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/markets", `{"question":"q","description":"d","onChain":true,"endDate":`+jsonInt(end)+`}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestSessionRoutes(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StateDisconnected, decode[session.Snapshot](t, rec).State)

	rec = s.do(t, http.MethodPost, "/api/session/connect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0xabc", decode[session.Snapshot](t, rec).Account)

	rec = s.do(t, http.MethodPost, "/api/session/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StateDisconnected, decode[session.Snapshot](t, rec).State)

	s.sess.connectErr = domain.ErrConnectInProgress
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/session/connect", "").Code)
	s.sess.connectErr = domain.ErrProviderUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/session/connect", "").Code)
	s.sess.connectErr = domain.ErrUserRejected
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/session/connect", "").Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/session/switch", "").Code)
	s.sess.switchErr = errors.New("rpc down")
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodPost, "/api/session/switch", "").Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, got["onChain"])
	assert.EqualValues(t, 8, got["offChain"])
	assert.EqualValues(t, 1, got["dropped"])
	assert.EqualValues(t, 10, got["total"])
}
