package session

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnrecognizedChain = 4902
)

// ProviderError is an error reported by a wallet provider, carrying its
// numeric code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet provider error %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known codes to domain sentinels so callers can use
// errors.Is.
func (e *ProviderError) Unwrap() error {
	switch e.Code {
	case CodeUserRejected:
		return domain.ErrUserRejected
	case CodeUnauthorized:
		return domain.ErrUnauthorized
	case CodeUnrecognizedChain:
		return domain.ErrUnrecognizedChain
	}
	return nil
}

// Event types emitted by a wallet provider.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Event is an unsolicited notification from the wallet provider.
type Event struct {
	Type     string
	Accounts []string
	ChainID  uint64
}

// Network describes the chain the wallet is currently pointed at.
type Network struct {
	ChainID uint64 `json:"chainId"`
}

// WalletProvider is the wallet the session drives. Implementations must be
// safe for concurrent use.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context, account string) (*big.Int, error)
	GetNetwork(ctx context.Context) (Network, error)
	Signer(ctx context.Context, account string) (chain.Signer, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params ChainParams) error
	Events() <-chan Event
}
