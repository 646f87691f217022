package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency describes a chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainParams is the full network description handed to a wallet that does
// not know the target chain yet.
type ChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
}

// NewChainParams builds params for an 18-decimal native currency.
func NewChainParams(chainID uint64, name, rpcURL, explorerURL, currency string) ChainParams {
	p := ChainParams{
		ChainID:        hexutil.EncodeUint64(chainID),
		ChainName:      name,
		RPCURLs:        []string{rpcURL},
		NativeCurrency: NativeCurrency{Name: currency, Symbol: currency, Decimals: 18},
	}
	if explorerURL != "" {
		p.BlockExplorerURLs = []string{explorerURL}
	}
	return p
}

// ID decodes the hex chain id.
func (p ChainParams) ID() (uint64, error) {
	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return 0, fmt.Errorf("session: chain id %q: %w", p.ChainID, err)
	}
	return id, nil
}
