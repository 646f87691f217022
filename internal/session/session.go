// Package session implements the wallet connection lifecycle: connect,
// disconnect, account and chain change handling, and the authorization gate
// on-chain market operations go through.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// State is the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Snapshot is a point-in-time copy of the session for readers.
type Snapshot struct {
	State         State  `json:"state"`
	Account       string `json:"account,omitempty"`
	ShortAccount  string `json:"shortAccount,omitempty"`
	Balance       string `json:"balance,omitempty"`
	ChainID       uint64 `json:"chainId,omitempty"`
	OnTargetChain bool   `json:"onTargetChain"`
	Invalidated   bool   `json:"invalidated"`
}

// Authorization is handed to operations that write to the chain.
type Authorization struct {
	Account string
	ChainID uint64
	Signer  chain.Signer
}

// Session is the wallet session state machine. It is safe for concurrent use.
type Session struct {
	provider WalletProvider
	target   ChainParams
	targetID uint64
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	account   string
	balance   *big.Int
	chainID   uint64
	signer    chain.Signer
	gen       uint64
	invalid   bool
	invalidCh chan struct{}
	onChange  func(Snapshot)
}

// New creates a disconnected session targeting the given network. provider
// may be nil, in which case Connect reports ErrProviderUnavailable.
func New(provider WalletProvider, target ChainParams, logger *slog.Logger) (*Session, error) {
	id, err := target.ID()
	if err != nil {
		return nil, err
	}
	return &Session{
		provider:  provider,
		target:    target,
		targetID:  id,
		logger:    logger.With(slog.String("component", "session")),
		state:     StateDisconnected,
		invalidCh: make(chan struct{}),
	}, nil
}

// OnChange registers a callback invoked after every state transition. It is
// called without the session lock held.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Target returns the network parameters the session switches to.
func (s *Session) Target() ChainParams {
	return s.target
}

// Connect requests account access and captures account, balance, chain id and
// a signer. On failure the session returns to disconnected and the error is
// returned to the caller.
func (s *Session) Connect(ctx context.Context) (Snapshot, error) {
	if s.provider == nil {
		return s.Snapshot(), fmt.Errorf("session: connect: %w", domain.ErrProviderUnavailable)
	}

	s.mu.Lock()
	switch {
	case s.invalid:
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("session: connect: %w", domain.ErrSessionInvalidated)
	case s.state == StateConnecting:
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("session: connect: %w", domain.ErrConnectInProgress)
	case s.state == StateConnected:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.gen++
	gen := s.gen
	s.state = StateConnecting
	s.commitLocked()

	account, balance, network, signer, err := s.dial(ctx)

	s.mu.Lock()
	if s.gen != gen {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		if snap.Invalidated {
			return snap, fmt.Errorf("session: connect: %w", domain.ErrSessionInvalidated)
		}
		return snap, fmt.Errorf("session: connect superseded: %w", domain.ErrNotConnected)
	}
	if err != nil {
		s.clearLocked()
		s.commitLocked()
		s.logger.WarnContext(ctx, "wallet connect failed", slog.String("error", err.Error()))
		return s.Snapshot(), fmt.Errorf("session: connect: %w", err)
	}
	s.state = StateConnected
	s.account = account
	s.balance = balance
	s.chainID = network.ChainID
	s.signer = signer
	snap := s.snapshotLocked()
	s.commitLocked()

	s.logger.InfoContext(ctx, "wallet connected",
		slog.String("account", ShortenAddress(account)),
		slog.Uint64("chain_id", network.ChainID),
	)
	return snap, nil
}

func (s *Session) dial(ctx context.Context) (string, *big.Int, Network, chain.Signer, error) {
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return "", nil, Network{}, nil, err
	}
	if len(accounts) == 0 {
		return "", nil, Network{}, nil, domain.ErrUserRejected
	}
	account := accounts[0]
	balance, err := s.provider.GetBalance(ctx, account)
	if err != nil {
		return "", nil, Network{}, nil, fmt.Errorf("balance: %w", err)
	}
	network, err := s.provider.GetNetwork(ctx)
	if err != nil {
		return "", nil, Network{}, nil, fmt.Errorf("network: %w", err)
	}
	signer, err := s.provider.Signer(ctx, account)
	if err != nil {
		return "", nil, Network{}, nil, fmt.Errorf("signer: %w", err)
	}
	return account, balance, network, signer, nil
}

// Disconnect drops the account and signer. Any in-flight Connect is
// superseded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.gen++
	s.clearLocked()
	s.commitLocked()
}

// HandleEvent applies a wallet provider event.
func (s *Session) HandleEvent(ev Event) {
	s.mu.Lock()
	switch ev.Type {
	case EventAccountsChanged:
		if s.state != StateConnected {
			s.mu.Unlock()
			return
		}
		if len(ev.Accounts) == 0 {
			s.gen++
			s.clearLocked()
			s.commitLocked()
			s.logger.Info("wallet reported no accounts, disconnected")
			return
		}
		if ev.Accounts[0] == s.account {
			s.mu.Unlock()
			return
		}
		s.account = ev.Accounts[0]
		s.signer = nil
		s.commitLocked()
		s.logger.Info("wallet account changed", slog.String("account", ShortenAddress(ev.Accounts[0])))

	case EventChainChanged:
		if s.state == StateDisconnected || s.invalid {
			s.mu.Unlock()
			return
		}
		s.gen++
		s.clearLocked()
		s.invalid = true
		close(s.invalidCh)
		s.commitLocked()
		s.logger.Warn("wallet chain changed, session invalidated", slog.Uint64("chain_id", ev.ChainID))

	default:
		s.mu.Unlock()
	}
}

// Watch applies provider events until ctx is cancelled or the event stream
// closes.
func (s *Session) Watch(ctx context.Context) error {
	if s.provider == nil {
		<-ctx.Done()
		return nil
	}
	events := s.provider.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ev)
		}
	}
}

// Invalidated is closed when a chain change invalidates the session. Hosts
// re-initialize chain-dependent state and then call Reset.
func (s *Session) Invalidated() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidCh
}

// Reset clears an invalidation so the session can connect again.
func (s *Session) Reset() {
	s.mu.Lock()
	if !s.invalid {
		s.mu.Unlock()
		return
	}
	s.invalid = false
	s.invalidCh = make(chan struct{})
	s.commitLocked()
}

// SwitchToPharos asks the wallet to switch to the target chain, adding the
// chain first when the wallet does not know it.
func (s *Session) SwitchToPharos(ctx context.Context) error {
	if s.provider == nil {
		return fmt.Errorf("session: switch chain: %w", domain.ErrProviderUnavailable)
	}
	err := s.provider.SwitchChain(ctx, s.targetID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUnrecognizedChain) {
		return fmt.Errorf("session: switch chain: %w", err)
	}
	s.logger.InfoContext(ctx, "chain unknown to wallet, adding it", slog.String("chain", s.target.ChainName))
	if err := s.provider.AddChain(ctx, s.target); err != nil {
		return fmt.Errorf("session: add chain: %w", err)
	}
	return nil
}

// Authorize returns the credentials for an on-chain write. The session must
// be connected to the target chain. The signer is resolved again after an
// account change.
func (s *Session) Authorize(ctx context.Context) (Authorization, error) {
	s.mu.Lock()
	if s.invalid {
		s.mu.Unlock()
		return Authorization{}, fmt.Errorf("session: authorize: %w", domain.ErrSessionInvalidated)
	}
	if s.state != StateConnected {
		s.mu.Unlock()
		return Authorization{}, fmt.Errorf("session: authorize: %w", domain.ErrNotConnected)
	}
	if s.chainID != s.targetID {
		chainID := s.chainID
		s.mu.Unlock()
		return Authorization{}, fmt.Errorf("session: authorize on chain %d: %w", chainID, domain.ErrWrongChain)
	}
	auth := Authorization{Account: s.account, ChainID: s.chainID, Signer: s.signer}
	gen := s.gen
	s.mu.Unlock()

	if auth.Signer != nil {
		return auth, nil
	}
	signer, err := s.provider.Signer(ctx, auth.Account)
	if err != nil {
		return Authorization{}, fmt.Errorf("session: resolve signer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.account != auth.Account {
		return Authorization{}, fmt.Errorf("session: authorize: account changed: %w", domain.ErrNotConnected)
	}
	s.signer = signer
	auth.Signer = signer
	return auth, nil
}

// Account returns the connected account, or "" when not connected.
func (s *Session) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return ""
	}
	return s.account
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       s.state,
		Account:     s.account,
		ChainID:     s.chainID,
		Invalidated: s.invalid,
	}
	if s.account != "" {
		snap.ShortAccount = ShortenAddress(s.account)
	}
	if s.balance != nil {
		snap.Balance = chain.FormatEther(s.balance)
	}
	snap.OnTargetChain = s.state == StateConnected && s.chainID == s.targetID
	return snap
}

func (s *Session) clearLocked() {
	s.state = StateDisconnected
	s.account = ""
	s.balance = nil
	s.chainID = 0
	s.signer = nil
}

// commitLocked releases the lock and notifies the observer.
func (s *Session) commitLocked() {
	snap := s.snapshotLocked()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
