package dex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ProtocolKind
		want ErrorClass
	}{
		{"nil error", nil, ConstantProduct, ErrNone},
		{"bare revert is no route", errors.New("execution reverted"), ConstantProduct, ErrNoRoute},
		{"insufficient liquidity constant", errors.New("execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY"), ConstantProduct, ErrInsufficientLiquidity},
		{"insufficient input", errors.New("execution reverted: INSUFFICIENT_INPUT_AMOUNT"), ConstantProduct, ErrInsufficientLiquidity},
		{"quoter lock", errors.New("execution reverted: LOK"), Concentrated, ErrTransientLock},
		{"pool locked", errors.New("execution reverted: pool is locked"), Concentrated, ErrTransientLock},
		{"lock on v2 is not transient", errors.New("execution reverted: locked"), ConstantProduct, ErrUnknown},
		{"rpc failure", errors.New("connection refused"), Concentrated, ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err, tt.kind))
		})
	}
}

func TestOnlyTransientLockRetryable(t *testing.T) {
	assert.True(t, ErrTransientLock.Retryable())
	assert.False(t, ErrNoRoute.Retryable())
	assert.False(t, ErrInsufficientLiquidity.Retryable())
	assert.False(t, ErrZeroOutput.Retryable())
	assert.False(t, ErrUnknown.Retryable())
}

func TestExclusionMessageKeepsRawUnknown(t *testing.T) {
	err := errors.New("dial tcp: i/o timeout")
	msg := ExclusionMessage(ErrUnknown, err)
	assert.Contains(t, msg, "i/o timeout")

	// Classified reasons stay human-readable without the raw error.
	assert.Equal(t, "insufficient liquidity", ExclusionMessage(ErrInsufficientLiquidity, err))
	assert.Equal(t, "zero or invalid output", ExclusionMessage(ErrZeroOutput, nil))
}
