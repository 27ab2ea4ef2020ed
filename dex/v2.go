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

	umath "github.com/taku247/hevm-tool/utils/math"
)

// DefaultSwapGas are static gas estimates used when the venue supplies none.
var DefaultSwapGas = map[ProtocolKind]uint64{
	ConstantProduct: 120000,
	Concentrated:    180000,
}

// Router "amounts out" view, two-token path variant.
const routerABIJson = `[{
	"constant": true,
	"inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "path", "type": "address[]"}
	],
	"name": "getAmountsOut",
	"outputs": [{"name": "amounts", "type": "uint256[]"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// V2Client quotes a constant-product router via getAmountsOut.
type V2Client struct {
	source    Source
	caller    Caller
	routerABI abi.ABI
	logger    *zap.Logger
}

// NewV2Client creates a quote client for one V2-style router.
func NewV2Client(source Source, caller Caller, logger *zap.Logger) (*V2Client, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &V2Client{
		source:    source,
		caller:    caller,
		routerABI: parsedABI,
		logger:    logger,
	}, nil
}

// Source returns the liquidity source this client quotes.
func (c *V2Client) Source() Source {
	return c.source
}

// Label returns the source label.
func (c *V2Client) Label() string {
	return c.source.Label()
}

// GetAmountOut quotes the router for a two-token path. Output is element 1
// of the returned amounts array.
func (c *V2Client) GetAmountOut(ctx context.Context, req QuoteRequest) Quote {
	data, err := c.routerABI.Pack("getAmountsOut", req.AmountIn, []common.Address{req.TokenIn.Address, req.TokenOut.Address})
	if err != nil {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("failed to pack getAmountsOut: %w", err))
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &c.source.Address,
		Data: data,
	}, nil)
	if err != nil {
		class := Classify(err, ConstantProduct)
		c.logger.Debug("router quote failed",
			zap.String("source", c.Label()),
			zap.String("class", class.String()),
			zap.Error(err),
		)
		return failedQuote(c.source, req, class, err)
	}

	decoded, err := c.routerABI.Unpack("getAmountsOut", out)
	if err != nil {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("failed to decode amounts: %w", err))
	}

	amounts, ok := decoded[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return failedQuote(c.source, req, ErrUnknown, fmt.Errorf("unexpected amounts shape"))
	}

	return successQuote(c.source, req, amounts[1], DefaultSwapGas[ConstantProduct])
}

// failedQuote builds an unsuccessful quote with a classified exclusion reason.
func failedQuote(source Source, req QuoteRequest, class ErrorClass, err error) Quote {
	return Quote{
		Source:    source,
		TokenIn:   req.TokenIn,
		TokenOut:  req.TokenOut,
		AmountIn:  req.AmountIn,
		Success:   false,
		ErrClass:  class,
		Exclusion: ExclusionMessage(class, err),
	}
}

// successQuote builds a successful quote, demoting zero/negligible output to
// a ZeroOutput failure. A pool that exists but returns no liquidity must not
// be reported as a usable quote.
func successQuote(source Source, req QuoteRequest, amountOut *big.Int, gasEstimate uint64) Quote {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return failedQuote(source, req, ErrZeroOutput, nil)
	}

	inFormatted := umath.FormatUnits(req.AmountIn, req.TokenIn.Decimals)
	outFormatted := umath.FormatUnits(amountOut, req.TokenOut.Decimals)
	if inFormatted <= 0 || outFormatted <= 0 {
		return failedQuote(source, req, ErrZeroOutput, nil)
	}

	return Quote{
		Source:      source,
		TokenIn:     req.TokenIn,
		TokenOut:    req.TokenOut,
		AmountIn:    new(big.Int).Set(req.AmountIn),
		AmountOut:   new(big.Int).Set(amountOut),
		Rate:        outFormatted / inFormatted,
		GasEstimate: gasEstimate,
		Success:     true,
	}
}
