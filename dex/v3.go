package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Quoter single-hop quote, fee-tier variant. The return carries auxiliary
// fields (post-trade price, ticks crossed) plus a venue gas estimate.
const quoterFeeABIJson = `[{
	"inputs": [{
		"components": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "fee", "type": "uint24"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}
		],
		"name": "params",
		"type": "tuple"
	}],
	"name": "quoteExactInputSingle",
	"outputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "sqrtPriceX96After", "type": "uint160"},
		{"name": "initializedTicksCrossed", "type": "uint32"},
		{"name": "gasEstimate", "type": "uint256"}
	],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// Tick-spacing variant used by quoters that select pools by spacing rather
// than fee tier.
const quoterSpacingABIJson = `[{
	"inputs": [{
		"components": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "tickSpacing", "type": "int24"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}
		],
		"name": "params",
		"type": "tuple"
	}],
	"name": "quoteExactInputSingle",
	"outputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "sqrtPriceX96After", "type": "uint160"},
		{"name": "initializedTicksCrossed", "type": "uint32"},
		{"name": "gasEstimate", "type": "uint256"}
	],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

type quoteParamsFee struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteParamsSpacing struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	TickSpacing       *big.Int
	SqrtPriceLimitX96 *big.Int
}

// V3Client quotes a concentrated-liquidity quoter at one fee tier or tick
// spacing. One logical venue with N tiers is configured as N sources.
type V3Client struct {
	source    Source
	caller    Caller
	quoterABI abi.ABI
	logger    *zap.Logger
}

// NewV3Client creates a quote client for one concentrated-liquidity source.
// The tick-spacing ABI variant is selected when the source sets TickSpacing.
func NewV3Client(source Source, caller Caller, logger *zap.Logger) (*V3Client, error) {
	abiJSON := quoterFeeABIJson
	if source.TickSpacing != 0 {
		abiJSON = quoterSpacingABIJson
	}

	parsedABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &V3Client{
		source:    source,
		caller:    caller,
		quoterABI: parsedABI,
		logger:    logger,
	}, nil
}

// Source returns the liquidity source this client quotes.
func (c *V3Client) Source() Source {
	return c.source
}

// Label returns the source label.
func (c *V3Client) Label() string {
	return c.source.Label()
}

// GetAmountOut quotes the quoter with priceLimit=0. The venue-supplied gas
// estimate, when present, overrides the static default.
func (c *V3Client) GetAmountOut(ctx context.Context, req QuoteRequest) Quote {
	var (
		data []byte
		err  error
	)
	if c.source.TickSpacing != 0 {
		data, err = c.quoterABI.Pack("quoteExactInputSingle", quoteParamsSpacing{
			TokenIn:           req.TokenIn.Address,
			TokenOut:          req.TokenOut.Address,
			AmountIn:          req.AmountIn,
			TickSpacing:       big.NewInt(c.source.TickSpacing),
			SqrtPriceLimitX96: big.NewInt(0),
		})
	} else {
		data, err = c.quoterABI.Pack("quoteExactInputSingle", quoteParamsFee{
			TokenIn:           req.TokenIn.Address,
			TokenOut:          req.TokenOut.Address,
			AmountIn:          req.AmountIn,
			Fee:               new(big.Int).SetUint64(uint64(c.source.FeeTier)),
			SqrtPriceLimitX96: big.NewInt(0),
		})
	}
	if err != nil {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("failed to pack quoteExactInputSingle: %w", err))
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &c.source.Address,
		Data: data,
	}, nil)
	if err != nil {
		class := Classify(err, Concentrated)
		c.logger.Debug("quoter quote failed",
			zap.String("source", c.Label()),
			zap.String("class", class.String()),
			zap.Error(err),
		)
		return failedQuote(c.source, req, class, err)
	}

	decoded, err := c.quoterABI.Unpack("quoteExactInputSingle", out)
	if err != nil {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("failed to decode quote: %w", err))
	}

	amountOut, ok := decoded[0].(*big.Int)
	if !ok {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("unexpected amountOut type"))
	}

	gasEstimate := DefaultSwapGas[Concentrated]
	if len(decoded) >= 4 {
		if venueGas, ok := decoded[3].(*big.Int); ok && venueGas.Sign() > 0 && venueGas.IsUint64() {
			gasEstimate = venueGas.Uint64()
		}
	}

	return successQuote(c.source, req, amountOut, gasEstimate)
}
