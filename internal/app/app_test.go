package app

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/config"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWire_LocalOnly(t *testing.T) {
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())

	deps, cleanup, err := Wire(context.Background(), &cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Gateway)
	assert.Nil(t, deps.Wallet)
	assert.Nil(t, deps.Bus)
	assert.Nil(t, deps.Archive)
	assert.Nil(t, deps.Notifier)
	assert.Empty(t, deps.Checks)
	assert.Len(t, deps.Markets.Markets(), 8)

	res := deps.Reconciler.Refresh(context.Background())
	assert.True(t, res.Degraded)
	assert.Len(t, res.Markets, 8)

	_, err = deps.Session.Connect(context.Background())
	assert.Error(t, err)
}

func TestWire_NoDemoMarkets(t *testing.T) {
	cfg := config.Defaults()
	cfg.Reconcile.DemoMarkets = false

	deps, cleanup, err := Wire(context.Background(), &cfg, discard())
	require.NoError(t, err)
	defer cleanup()
	assert.Empty(t, deps.Markets.Markets())
}

type stubProvider struct {
	events chan session.Event
}

func (p *stubProvider) RequestAccounts(context.Context) ([]string, error) {
	return []string{"0x00000000000000000000000000000000000000aa"}, nil
}

func (p *stubProvider) GetBalance(context.Context, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (p *stubProvider) GetNetwork(context.Context) (session.Network, error) {
	return session.Network{ChainID: 688888}, nil
}

func (p *stubProvider) Signer(context.Context, string) (chain.Signer, error) { return nil, nil }

func (p *stubProvider) SwitchChain(context.Context, uint64) error { return nil }

func (p *stubProvider) AddChain(context.Context, session.ChainParams) error { return nil }

func (p *stubProvider) Events() <-chan session.Event { return p.events }

func TestWatchInvalidation_ReinitAndReset(t *testing.T) {
	target := session.NewChainParams(688888, "Pharos Testnet", "", "", "PHAR")
	sess, err := session.New(&stubProvider{events: make(chan session.Event)}, target, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reinits atomic.Int32
	done := make(chan struct{})
	go func() {
		watchInvalidation(ctx, sess, func(context.Context) { reinits.Add(1) }, discard())
		close(done)
	}()

	for round := 1; round <= 2; round++ {
		_, err := sess.Connect(ctx)
		require.NoError(t, err)
		sess.HandleEvent(session.Event{Type: session.EventChainChanged, ChainID: 1})
		require.Eventually(t, func() bool {
			return reinits.Load() == int32(round) && !sess.Snapshot().Invalidated
		}, time.Second, time.Millisecond)
	}

	cancel()
	<-done
}
