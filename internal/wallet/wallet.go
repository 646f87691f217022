// Package wallet provides a WalletProvider backed by a local private key,
// for running the session without a browser wallet.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

// Client is the RPC surface the wallet reads from. *ethclient.Client
// satisfies it.
type Client interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeyWallet holds a single key and answers session requests for it.
type KeyWallet struct {
	key    *ecdsa.PrivateKey
	addr   common.Address
	client Client
	logger *slog.Logger
	events chan session.Event

	mu      sync.Mutex
	chainID uint64
	known   map[uint64]session.ChainParams
}

// New creates a KeyWallet whose active chain is the one client is attached to.
func New(ctx context.Context, key *ecdsa.PrivateKey, client Client, logger *slog.Logger) (*KeyWallet, error) {
	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: chain id: %w", err)
	}
	if !id.IsUint64() {
		return nil, fmt.Errorf("wallet: chain id %s out of range", id)
	}
	w := &KeyWallet{
		key:     key,
		addr:    ethcrypto.PubkeyToAddress(key.PublicKey),
		client:  client,
		logger:  logger.With(slog.String("component", "key_wallet")),
		events:  make(chan session.Event, 16),
		chainID: id.Uint64(),
		known:   make(map[uint64]session.ChainParams),
	}
	w.known[w.chainID] = session.ChainParams{}
	return w, nil
}

// Address returns the wallet account.
func (w *KeyWallet) Address() common.Address {
	return w.addr
}

func (w *KeyWallet) RequestAccounts(context.Context) ([]string, error) {
	return []string{w.addr.Hex()}, nil
}

func (w *KeyWallet) GetBalance(ctx context.Context, account string) (*big.Int, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("wallet: invalid address %q", account)
	}
	bal, err := w.client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: balance of %s: %w", account, err)
	}
	return bal, nil
}

func (w *KeyWallet) GetNetwork(context.Context) (session.Network, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return session.Network{ChainID: w.chainID}, nil
}

// Signer returns a signer for account, which must be the wallet's own.
func (w *KeyWallet) Signer(_ context.Context, account string) (chain.Signer, error) {
	if !strings.EqualFold(account, w.addr.Hex()) {
		return nil, &session.ProviderError{Code: session.CodeUnauthorized, Message: "account not held by wallet"}
	}
	w.mu.Lock()
	chainID := new(big.Int).SetUint64(w.chainID)
	w.mu.Unlock()
	return &keySigner{key: w.key, addr: w.addr, chainID: chainID}, nil
}

// SwitchChain makes chainID active. Unknown chains fail with code 4902.
func (w *KeyWallet) SwitchChain(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	if chainID == w.chainID {
		w.mu.Unlock()
		return nil
	}
	if _, ok := w.known[chainID]; !ok {
		w.mu.Unlock()
		return &session.ProviderError{
			Code:    session.CodeUnrecognizedChain,
			Message: fmt.Sprintf("unrecognized chain id %d", chainID),
		}
	}
	w.chainID = chainID
	w.mu.Unlock()

	w.emit(session.Event{Type: session.EventChainChanged, ChainID: chainID})
	return nil
}

// AddChain registers params and switches to the chain.
func (w *KeyWallet) AddChain(ctx context.Context, params session.ChainParams) error {
	id, err := params.ID()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.known[id] = params
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "chain added", slog.String("chain", params.ChainName), slog.Uint64("chain_id", id))
	return w.SwitchChain(ctx, id)
}

func (w *KeyWallet) Events() <-chan session.Event {
	return w.events
}

// Revoke reports that the wallet no longer exposes any account.
func (w *KeyWallet) Revoke() {
	w.emit(session.Event{Type: session.EventAccountsChanged, Accounts: []string{}})
}

func (w *KeyWallet) emit(ev session.Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("wallet event dropped, no reader", slog.String("type", ev.Type))
	}
}

type keySigner struct {
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
}

func (s *keySigner) Address() common.Address { return s.addr }

func (s *keySigner) SignTx(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign tx: %w", err)
	}
	return signed, nil
}
