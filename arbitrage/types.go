package arbitrage

import (
	"math/big"
	"time"

	"github.com/taku247/hevm-tool/dex"
	"github.com/taku247/hevm-tool/gas"
)

// ScanMode selects between single-direction price comparison and true
// two-hop round-trip simulation.
type ScanMode int

const (
	// PriceDifference compares one-direction rates across venues.
	PriceDifference ScanMode = iota
	// RoundTrip simulates buy-then-sell with the measured intermediate amount.
	RoundTrip
)

func (m ScanMode) String() string {
	switch m {
	case RoundTrip:
		return "roundtrip"
	default:
		return "spread"
	}
}

// SpreadOpportunity is a price difference between two venues for the same
// pair and direction. Derived, recomputed every scan.
type SpreadOpportunity struct {
	BuySource     dex.Source
	SellSource    dex.Source
	BuyRate       float64
	SellRate      float64
	SpreadPercent float64
	CrossVenue    bool
}

// ExecutionStatus reports how far a simulated round trip got.
type ExecutionStatus int

const (
	// Executed means both legs quoted successfully.
	Executed ExecutionStatus = iota
	// FailedAtSell means the sell leg produced no usable quote; the
	// combination is recorded as a total simulated loss, not skipped.
	FailedAtSell
)

func (s ExecutionStatus) String() string {
	if s == FailedAtSell {
		return "failed_at_sell"
	}
	return "success"
}

// RoundTripResult is one (buy venue, sell venue) simulation. Profit always
// satisfies profit = finalAmount - initialAmount with the measured
// intermediate amount, never a product of independent rates.
type RoundTripResult struct {
	BuySource          dex.Source
	SellSource         dex.Source
	InitialAmount      *big.Int // token A smallest unit
	IntermediateAmount *big.Int // token B smallest unit, the buy leg's real output
	FinalAmount        *big.Int // token A smallest unit
	Profit             *big.Int
	ProfitPercent      float64
	Status             ExecutionStatus
	FailureReason      string
}

// PairScanResult aggregates everything observed for one token pair.
type PairScanResult struct {
	Pair       string
	TokenA     dex.TokenRef
	TokenB     dex.TokenRef
	Quotes     []dex.Quote
	Exclusions []string

	// Price-difference mode.
	Spreads    []SpreadOpportunity // above threshold, ranked
	AllSpreads []SpreadOpportunity // every combination, informational

	// Round-trip mode.
	Executions []RoundTripResult // every combination, success or failure
	RoundTrips []RoundTripResult // profitable subset, ranked

	HasOpportunity bool
	BestSource     string
	WorstSource    string
	Err            string // pair-level failure annotation; never aborts the batch
	Elapsed        time.Duration
}

// Progress is one append-only progress event, emitted after each batch.
type Progress struct {
	Processed     int
	Total         int
	Opportunities int
}

// ScanRun aggregates a whole batch scan.
type ScanRun struct {
	Mode          ScanMode
	TotalPairs    int
	Results       []PairScanResult
	Opportunities int
	SuccessRate   float64 // pairs with >=1 opportunity / total pairs
	TopSpreads    []SpreadOpportunity
	TopRoundTrips []RoundTripResult
	Gas           *gas.Snapshot
	StartedAt     time.Time
	Duration      time.Duration
}
