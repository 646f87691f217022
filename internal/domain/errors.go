package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMarketInactive  = errors.New("market is not active")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidOutcome  = errors.New("outcome must be yes or no")
	ErrInvalidDraft    = errors.New("invalid market draft")
	ErrMalformedMarket = errors.New("malformed market data")
	ErrZeroPrice       = errors.New("outcome price is zero")

	ErrNotConnected        = errors.New("wallet not connected")
	ErrConnectInProgress   = errors.New("wallet connection in progress")
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUserRejected        = errors.New("user rejected request")
	ErrUnauthorized        = errors.New("account not authorized by wallet")
	ErrUnrecognizedChain   = errors.New("unrecognized chain")
	ErrWrongChain          = errors.New("wallet is on a different chain")
	ErrSessionInvalidated  = errors.New("session invalidated")
)
