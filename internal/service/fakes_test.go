package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	listed  []domain.Market
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{markets: make(map[string]domain.Market)}
}

func (f *fakeStore) Upsert(_ context.Context, m domain.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.markets[m.ID] = m
	return nil
}

func (f *fakeStore) ListOffChain(context.Context) ([]domain.Market, error) {
	return f.listed, f.err
}

type busMessage struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []busMessage
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, busMessage{channel: channel, payload: payload})
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (f *fakeBus) messages() []busMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]busMessage(nil), f.msgs...)
}

type fakeAuth struct {
	account string
	err     error
}

func (f *fakeAuth) Authorize(context.Context) (session.Authorization, error) {
	if f.err != nil {
		return session.Authorization{}, f.err
	}
	return session.Authorization{Account: f.account, ChainID: 688888, Signer: stubSigner{}}, nil
}

func (f *fakeAuth) Account() string {
	if f.err != nil {
		return ""
	}
	return f.account
}

type stubSigner struct{ chain.Signer }

type buyCall struct {
	market  common.Address
	outcome domain.Outcome
	value   *big.Int
}

type fakeTrader struct {
	buys    []buyCall
	creates []string
	err     error
	onBuy   func()
}

func (f *fakeTrader) Buy(_ context.Context, _ chain.Signer, market common.Address, outcome domain.Outcome, value *big.Int) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	f.buys = append(f.buys, buyCall{market: market, outcome: outcome, value: value})
	if f.onBuy != nil {
		f.onBuy()
	}
	return common.HexToHash("0xfeed"), nil
}

func (f *fakeTrader) CreateMarket(_ context.Context, _ chain.Signer, question, _, _ string, _ time.Time) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	f.creates = append(f.creates, question)
	return common.HexToHash("0xbeef"), nil
}

type fakeRegistry struct {
	count    uint64
	countErr error
	addrs    []common.Address
	addrsErr error
	infos    map[common.Address]chain.MarketInfo
	infoErrs map[common.Address]error
	gotLimit uint64
}

func (f *fakeRegistry) MarketCount(context.Context) (uint64, error) {
	return f.count, f.countErr
}

func (f *fakeRegistry) MarketAddresses(_ context.Context, _, limit uint64) ([]common.Address, error) {
	f.gotLimit = limit
	if f.addrsErr != nil {
		return nil, f.addrsErr
	}
	if uint64(len(f.addrs)) > limit {
		return f.addrs[:limit], nil
	}
	return f.addrs, nil
}

func (f *fakeRegistry) MarketInfo(_ context.Context, addr common.Address) (chain.MarketInfo, error) {
	if err := f.infoErrs[addr]; err != nil {
		return chain.MarketInfo{}, err
	}
	info, ok := f.infos[addr]
	if !ok {
		return chain.MarketInfo{}, errors.New("execution reverted")
	}
	return info, nil
}

func marketInfo(question string, yes int64, status, outcome uint8) chain.MarketInfo {
	return chain.MarketInfo{
		Question:     question,
		Description:  "desc",
		Category:     "crypto",
		Creator:      common.HexToAddress("0x00000000000000000000000000000000000000c0"),
		EndTime:      big.NewInt(testNow.Add(48 * time.Hour).Unix()),
		YesPrice:     big.NewInt(yes),
		NoPrice:      big.NewInt(100 - yes),
		TotalVolume:  chain.ToWei(10),
		Participants: big.NewInt(4),
		Status:       status,
		Outcome:      outcome,
	}
}

type fakeAlerter struct {
	mu       sync.Mutex
	resolved []string
}

func (f *fakeAlerter) MarketResolved(_ context.Context, m domain.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, m.ID)
	return nil
}

type fakeSnapshotCache struct {
	stored []domain.Market
	at     time.Time
	err    error
}

func (f *fakeSnapshotCache) StoreOnChain(_ context.Context, ms []domain.Market) error {
	f.stored = ms
	f.at = testNow
	return f.err
}

func (f *fakeSnapshotCache) LoadOnChain(context.Context) ([]domain.Market, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	return f.stored, f.at, nil
}
