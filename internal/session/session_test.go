package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
)

const pharosID = 688888

type stubSigner struct{ addr common.Address }

func (s stubSigner) Address() common.Address { return s.addr }

func (s stubSigner) SignTx(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	return tx, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	accounts    []string
	accountsErr error
	balance     *big.Int
	chainID     uint64
	switchErr   error
	added       []ChainParams
	switched    []uint64
	signerCalls int
	// gate, when set, blocks RequestAccounts until closed.
	gate   chan struct{}
	events chan Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: []string{"0xabc"},
		balance:  big.NewInt(1_500_000_000_000_000_000),
		chainID:  pharosID,
		events:   make(chan Event, 4),
	}
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts, f.accountsErr
}

func (f *fakeProvider) GetBalance(context.Context, string) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeProvider) GetNetwork(context.Context) (Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Network{ChainID: f.chainID}, nil
}

func (f *fakeProvider) Signer(_ context.Context, account string) (chain.Signer, error) {
	f.mu.Lock()
	f.signerCalls++
	f.mu.Unlock()
	return stubSigner{addr: common.HexToAddress(account)}, nil
}

func (f *fakeProvider) SwitchChain(_ context.Context, chainID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switched = append(f.switched, chainID)
	return f.switchErr
}

func (f *fakeProvider) AddChain(_ context.Context, params ChainParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, params)
	return nil
}

func (f *fakeProvider) Events() <-chan Event { return f.events }

func testParams() ChainParams {
	return NewChainParams(pharosID, "Pharos Testnet", "https://testnet.dplabs-internal.com", "https://testnet.pharosscan.xyz", "PHAR")
}

func newTestSession(t *testing.T, p WalletProvider) *Session {
	t.Helper()
	s, err := New(p, testParams(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestConnect(t *testing.T) {
	s := newTestSession(t, newFakeProvider())

	snap, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "0xabc", snap.Account)
	assert.Equal(t, uint64(pharosID), snap.ChainID)
	assert.Equal(t, "1.5", snap.Balance)
	assert.True(t, snap.OnTargetChain)
}

func TestConnect_TwiceReturnsCurrent(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	snap, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, 1, p.signerCalls)
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(p *fakeProvider)
		wantErr error
	}{
		{
			name:    "user rejects",
			setup:   func(p *fakeProvider) { p.accountsErr = &ProviderError{Code: CodeUserRejected, Message: "denied"} },
			wantErr: domain.ErrUserRejected,
		},
		{
			name:    "no accounts",
			setup:   func(p *fakeProvider) { p.accounts = nil },
			wantErr: domain.ErrUserRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			tt.setup(p)
			s := newTestSession(t, p)

			snap, err := s.Connect(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateDisconnected, snap.State)
			assert.Empty(t, snap.Account)
		})
	}
}

func TestConnect_NoProvider(t *testing.T) {
	s := newTestSession(t, nil)

	snap, err := s.Connect(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, StateDisconnected, snap.State)
}

func TestConnect_InProgressAndSuperseded(t *testing.T) {
	p := newFakeProvider()
	p.gate = make(chan struct{})
	s := newTestSession(t, p)

	done := make(chan error, 1)
	go func() {
		_, err := s.Connect(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateConnecting
	}, time.Second, time.Millisecond)

	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectInProgress)

	s.Disconnect()
	close(p.gate)

	err = <-done
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, StateDisconnected, s.Snapshot().State)
}

func TestHandleEvent_AccountsEmptyDisconnects(t *testing.T) {
	s := newTestSession(t, newFakeProvider())
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	s.HandleEvent(Event{Type: EventAccountsChanged, Accounts: nil})

	snap := s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Empty(t, snap.Account)
	assert.Empty(t, snap.Balance)
}

func TestHandleEvent_AccountChangedKeepsBalance(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	s.HandleEvent(Event{Type: EventAccountsChanged, Accounts: []string{"0xdef"}})

	snap := s.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "0xdef", snap.Account)
	assert.Equal(t, "1.5", snap.Balance)

	auth, err := s.Authorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xdef", auth.Account)
	assert.Equal(t, common.HexToAddress("0xdef"), auth.Signer.Address())
	assert.Equal(t, 2, p.signerCalls)
}

func TestHandleEvent_ChainChangedInvalidates(t *testing.T) {
	s := newTestSession(t, newFakeProvider())
	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	invalidated := s.Invalidated()

	s.HandleEvent(Event{Type: EventChainChanged, ChainID: 1})

	select {
	case <-invalidated:
	default:
		t.Fatal("invalidation channel not closed")
	}
	snap := s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.True(t, snap.Invalidated)

	_, err = s.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
	_, err = s.Authorize(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)

	s.Reset()
	_, err = s.Connect(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, invalidated, s.Invalidated())
}

func TestHandleEvent_IgnoredWhenDisconnected(t *testing.T) {
	s := newTestSession(t, newFakeProvider())

	s.HandleEvent(Event{Type: EventAccountsChanged, Accounts: []string{"0xdef"}})
	s.HandleEvent(Event{Type: EventChainChanged, ChainID: 1})

	snap := s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.False(t, snap.Invalidated)
}

func TestWatch(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	p.events <- Event{Type: EventAccountsChanged, Accounts: []string{}}
	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateDisconnected
	}, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestSwitchToPharos(t *testing.T) {
	t.Run("known chain", func(t *testing.T) {
		p := newFakeProvider()
		s := newTestSession(t, p)

		require.NoError(t, s.SwitchToPharos(context.Background()))
		assert.Equal(t, []uint64{pharosID}, p.switched)
		assert.Empty(t, p.added)
	})

	t.Run("unrecognized chain falls back to add", func(t *testing.T) {
		p := newFakeProvider()
		p.switchErr = &ProviderError{Code: CodeUnrecognizedChain, Message: "unknown chain"}
		s := newTestSession(t, p)

		require.NoError(t, s.SwitchToPharos(context.Background()))
		require.Len(t, p.added, 1)
		added := p.added[0]
		assert.Equal(t, "0xa82f8", added.ChainID)
		assert.Equal(t, "Pharos Testnet", added.ChainName)
		assert.Equal(t, NativeCurrency{Name: "PHAR", Symbol: "PHAR", Decimals: 18}, added.NativeCurrency)
	})

	t.Run("other errors surface", func(t *testing.T) {
		p := newFakeProvider()
		p.switchErr = &ProviderError{Code: CodeUserRejected, Message: "no"}
		s := newTestSession(t, p)

		err := s.SwitchToPharos(context.Background())
		assert.ErrorIs(t, err, domain.ErrUserRejected)
		var perr *ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, CodeUserRejected, perr.Code)
		assert.Empty(t, p.added)
	})
}

func TestAuthorize(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		s := newTestSession(t, newFakeProvider())
		_, err := s.Authorize(context.Background())
		assert.ErrorIs(t, err, domain.ErrNotConnected)
	})

	t.Run("wrong chain", func(t *testing.T) {
		p := newFakeProvider()
		p.chainID = 1
		s := newTestSession(t, p)
		snap, err := s.Connect(context.Background())
		require.NoError(t, err)
		assert.False(t, snap.OnTargetChain)

		_, err = s.Authorize(context.Background())
		assert.ErrorIs(t, err, domain.ErrWrongChain)
	})

	t.Run("connected", func(t *testing.T) {
		s := newTestSession(t, newFakeProvider())
		_, err := s.Connect(context.Background())
		require.NoError(t, err)

		auth, err := s.Authorize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0xabc", auth.Account)
		assert.Equal(t, uint64(pharosID), auth.ChainID)
		assert.NotNil(t, auth.Signer)
	})
}

func TestOnChange(t *testing.T) {
	s := newTestSession(t, newFakeProvider())
	var states []State
	s.OnChange(func(snap Snapshot) { states = append(states, snap.State) })

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	s.Disconnect()

	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, states)
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0x438D...73c5", ShortenAddress("0x438D2864035e9FBec492762b0D01121E843073c5"))
	assert.Equal(t, "0xabc", ShortenAddress("0xabc"))
	assert.Equal(t, "", ShortenAddress(""))
}
