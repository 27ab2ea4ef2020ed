package dex

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultRetryAttempts bounds retries for transient lock contention.
	DefaultRetryAttempts = 3
	// DefaultRetryBackoff is the base delay; attempt n waits n*backoff.
	DefaultRetryBackoff = 100 * time.Millisecond
)

// retryingClient wraps a QuoteClient with bounded retry for transient lock
// contention. All other failure classes fail immediately.
type retryingClient struct {
	inner    QuoteClient
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// WithRetry decorates a quote client with bounded retry, parameterized by
// error classification rather than any particular revert string.
func WithRetry(inner QuoteClient, attempts int, backoff time.Duration, logger *zap.Logger) QuoteClient {
	if attempts <= 1 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingClient{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

func (r *retryingClient) Source() Source {
	return r.inner.Source()
}

func (r *retryingClient) Label() string {
	return r.inner.Label()
}

func (r *retryingClient) GetAmountOut(ctx context.Context, req QuoteRequest) Quote {
	var quote Quote

	for attempt := 1; attempt <= r.attempts; attempt++ {
		quote = r.inner.GetAmountOut(ctx, req)
		if quote.Success || !quote.ErrClass.Retryable() {
			return quote
		}

		if attempt == r.attempts {
			break
		}

		r.logger.Debug("retrying quote after lock contention",
			zap.String("source", r.inner.Label()),
			zap.Int("attempt", attempt),
		)

		select {
		case <-ctx.Done():
			return quote
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}

	return quote
}
