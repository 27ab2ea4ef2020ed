package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ProtocolKind identifies how a liquidity source computes swap output.
type ProtocolKind int

const (
	// ConstantProduct is a V2-style AMM router.
	ConstantProduct ProtocolKind = iota
	// Concentrated is a V3-style quoter over tick-based liquidity.
	Concentrated
)

func (k ProtocolKind) String() string {
	switch k {
	case ConstantProduct:
		return "v2"
	case Concentrated:
		return "v3"
	default:
		return "unknown"
	}
}

// Source identifies one quotable venue: a router, or a quoter instance at
// one fee tier / tick spacing. Immutable for the duration of a run.
type Source struct {
	DexID       string
	Kind        ProtocolKind
	Address     common.Address // router (v2) or quoter (v3)
	FeeTier     uint32         // v3 fee-based quoters
	TickSpacing int64          // v3 tick-spacing-based quoters, 0 if unused
}

// Label returns a human-readable identifier used in exclusion reasons and
// opportunity reports.
func (s Source) Label() string {
	switch s.Kind {
	case Concentrated:
		if s.TickSpacing != 0 {
			return fmt.Sprintf("%s(spacing=%d)", s.DexID, s.TickSpacing)
		}
		return fmt.Sprintf("%s(fee=%d)", s.DexID, s.FeeTier)
	default:
		return s.DexID
	}
}

// TokenRef holds the metadata needed to normalize raw amounts. Callers must
// tolerate placeholder metadata: decimals default to 18 and symbol to
// "UNKNOWN" when resolution fails.
type TokenRef struct {
	Symbol   string
	Name     string
	Address  common.Address
	Decimals uint8
}

// QuoteRequest asks one source for the output amount of a single swap.
type QuoteRequest struct {
	TokenIn  TokenRef
	TokenOut TokenRef
	AmountIn *big.Int // smallest unit of TokenIn
}

// Quote is the result of one QuoteRequest. Value object, never mutated
// after construction. Rate is zero when Success is false.
type Quote struct {
	Source      Source
	TokenIn     TokenRef
	TokenOut    TokenRef
	AmountIn    *big.Int
	AmountOut   *big.Int
	Rate        float64 // formatted out / formatted in
	GasEstimate uint64
	Success     bool
	ErrClass    ErrorClass
	Exclusion   string // human-readable reason when Success is false
}

// QuoteClient is the uniform interface to one liquidity source. Failures
// are classified into Quote.Exclusion, never returned as errors.
type QuoteClient interface {
	Source() Source
	Label() string
	GetAmountOut(ctx context.Context, req QuoteRequest) Quote
}

// Caller is the chain view-call capability quote clients depend on.
// Satisfied by chain.Client and by ethclient.Client directly.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
