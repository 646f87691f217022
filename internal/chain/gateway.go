// Package chain is the read/write boundary to the EVM network hosting the
// market factory and the individual market contracts.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// MaxPageSize is the most market addresses requested from the registry in
// one call.
const MaxPageSize = 50

// Backend is the subset of an RPC client the gateway needs. *ethclient.Client
// satisfies it.
type Backend interface {
	ethereum.ContractCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Signer signs transactions on behalf of one account.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// MarketInfo is the raw getMarketInfo tuple. Status and Outcome are the
// contract's numeric codes; callers decode them.
type MarketInfo struct {
	Question     string
	Description  string
	Category     string
	Creator      common.Address
	EndTime      *big.Int // unix seconds
	YesPrice     *big.Int
	NoPrice      *big.Int
	TotalVolume  *big.Int // wei
	Participants *big.Int
	Status       uint8
	Outcome      uint8
}

// Gateway reads the factory registry and market contracts and submits trade
// and creation transactions.
type Gateway struct {
	backend    Backend
	factory    common.Address
	factoryABI abi.ABI
	marketABI  abi.ABI
	logger     *slog.Logger
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// NewGateway creates a Gateway for the factory at factoryAddr.
func NewGateway(backend Backend, factoryAddr string, logger *slog.Logger) (*Gateway, error) {
	if !common.IsHexAddress(factoryAddr) {
		return nil, fmt.Errorf("chain: invalid factory address %q", factoryAddr)
	}
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse factory abi: %w", err)
	}
	marketABI, err := abi.JSON(strings.NewReader(marketABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse market abi: %w", err)
	}
	return &Gateway{
		backend:    backend,
		factory:    common.HexToAddress(factoryAddr),
		factoryABI: factoryABI,
		marketABI:  marketABI,
		logger:     logger.With(slog.String("component", "chain_gateway")),
	}, nil
}

// Factory returns the registry contract address.
func (g *Gateway) Factory() common.Address {
	return g.factory
}

// MarketCount returns the number of markets the registry tracks.
func (g *Gateway) MarketCount(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, g.factory, g.factoryABI, "getMarketCount")
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("chain: getMarketCount: unexpected result %v: %w", out[0], domain.ErrMalformedMarket)
	}
	return n.Uint64(), nil
}

// MarketAddresses returns up to limit market addresses starting at offset.
// limit is capped at MaxPageSize.
func (g *Gateway) MarketAddresses(ctx context.Context, offset, limit uint64) ([]common.Address, error) {
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	out, err := g.call(ctx, g.factory, g.factoryABI, "getMarkets",
		new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("chain: getMarkets: unexpected result type %T: %w", out[0], domain.ErrMalformedMarket)
	}
	if uint64(len(addrs)) > limit {
		addrs = addrs[:limit]
	}
	return addrs, nil
}

// MarketInfo reads the info tuple of the market contract at addr.
func (g *Gateway) MarketInfo(ctx context.Context, addr common.Address) (MarketInfo, error) {
	out, err := g.call(ctx, addr, g.marketABI, "getMarketInfo")
	if err != nil {
		return MarketInfo{}, err
	}
	info, err := decodeMarketInfo(out)
	if err != nil {
		return MarketInfo{}, fmt.Errorf("chain: getMarketInfo %s: %w", addr.Hex(), err)
	}
	return info, nil
}

// Buy submits a payable buyYes or buyNo call sending value wei.
func (g *Gateway) Buy(ctx context.Context, signer Signer, market common.Address, outcome domain.Outcome, value *big.Int) (common.Hash, error) {
	method := "buyYes"
	if outcome == domain.OutcomeNo {
		method = "buyNo"
	}
	data, err := g.marketABI.Pack(method)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	return g.transact(ctx, signer, market, data, value)
}

// CreateMarket submits a factory createMarket transaction.
func (g *Gateway) CreateMarket(ctx context.Context, signer Signer, question, description, category string, endTime time.Time) (common.Hash, error) {
	data, err := g.factoryABI.Pack("createMarket",
		question, description, category, big.NewInt(endTime.Unix()))
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pack createMarket: %w", err)
	}
	return g.transact(ctx, signer, g.factory, data, new(big.Int))
}

func (g *Gateway) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	raw, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s on %s: %w", method, to.Hex(), err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s from %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: %s on %s returned no values: %w", method, to.Hex(), domain.ErrMalformedMarket)
	}
	return out, nil
}

func (g *Gateway) transact(ctx context.Context, signer Signer, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	from := signer.Address()

	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: suggest gas price: %w", err)
	}
	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := signer.SignTx(ctx, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: sign tx: %w", err)
	}
	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("chain: send tx: %w", err)
	}

	g.logger.InfoContext(ctx, "transaction submitted",
		slog.String("from", from.Hex()),
		slog.String("to", to.Hex()),
		slog.String("tx", signed.Hash().Hex()),
	)
	return signed.Hash(), nil
}

func decodeMarketInfo(out []any) (MarketInfo, error) {
	if len(out) != 11 {
		return MarketInfo{}, fmt.Errorf("expected 11 values, got %d: %w", len(out), domain.ErrMalformedMarket)
	}
	var (
		info MarketInfo
		ok   [11]bool
	)
	info.Question, ok[0] = out[0].(string)
	info.Description, ok[1] = out[1].(string)
	info.Category, ok[2] = out[2].(string)
	info.Creator, ok[3] = out[3].(common.Address)
	info.EndTime, ok[4] = out[4].(*big.Int)
	info.YesPrice, ok[5] = out[5].(*big.Int)
	info.NoPrice, ok[6] = out[6].(*big.Int)
	info.TotalVolume, ok[7] = out[7].(*big.Int)
	info.Participants, ok[8] = out[8].(*big.Int)
	info.Status, ok[9] = out[9].(uint8)
	info.Outcome, ok[10] = out[10].(uint8)
	for i, good := range ok {
		if !good {
			return MarketInfo{}, fmt.Errorf("field %d has type %T: %w", i, out[i], domain.ErrMalformedMarket)
		}
	}
	return info, nil
}
