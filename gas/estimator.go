package gas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// HeaderSource is the slice of chain capability the estimator needs.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Snapshot captures chain gas pricing at one point in time. Recorded on a
// scan run so reported opportunities can be judged against current costs.
type Snapshot struct {
	BlockNumber *big.Int
	BaseFee     *big.Int
	PriorityFee *big.Int
}

// TotalPrice returns base fee plus priority fee.
func (s *Snapshot) TotalPrice() *big.Int {
	if s == nil || s.BaseFee == nil || s.PriorityFee == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Add(s.BaseFee, s.PriorityFee)
}

// CostFor returns the wei cost of spending gasUsed at this snapshot's price.
func (s *Snapshot) CostFor(gasUsed uint64) *big.Int {
	return new(big.Int).Mul(s.TotalPrice(), new(big.Int).SetUint64(gasUsed))
}

// Estimator takes one-shot gas pricing snapshots.
type Estimator struct {
	source HeaderSource
	logger *zap.Logger
}

// NewEstimator creates a gas estimator.
func NewEstimator(source HeaderSource, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{
		source: source,
		logger: logger,
	}
}

// Take fetches the latest base fee and suggested priority fee. Chains
// without EIP-1559 headers report a zero base fee.
func (e *Estimator) Take(ctx context.Context) (*Snapshot, error) {
	header, err := e.source.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}

	priorityFee, err := e.source.SuggestGasTipCap(ctx)
	if err != nil {
		e.logger.Debug("priority fee suggestion failed, using zero", zap.Error(err))
		priorityFee = big.NewInt(0)
	}

	return &Snapshot{
		BlockNumber: header.Number,
		BaseFee:     baseFee,
		PriorityFee: priorityFee,
	}, nil
}
