package arbitrage

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taku247/hevm-tool/dex"
	"github.com/taku247/hevm-tool/utils/metrics"
)

// Aggregator fans one quote request out to every configured source and
// joins the results back in issue order.
type Aggregator struct {
	logger  *zap.Logger
	metrics *metrics.ScanMetrics
}

// NewAggregator creates a quote aggregator. Metrics may be nil.
func NewAggregator(logger *zap.Logger, m *metrics.ScanMetrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		logger:  logger,
		metrics: m,
	}
}

// FetchAll issues one quote request per client concurrently. A failure in
// one source never cancels or delays the others. Quotes come back in the
// order clients were issued, joined by slot rather than arrival; exclusions
// are "<label>: <reason>" diagnostics, not errors.
func (a *Aggregator) FetchAll(ctx context.Context, clients []dex.QuoteClient, tokenIn, tokenOut dex.TokenRef, amountIn *big.Int) ([]dex.Quote, []string) {
	quotes := make([]dex.Quote, len(clients))

	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(slot int, client dex.QuoteClient) {
			defer wg.Done()

			start := time.Now()
			quote := client.GetAmountOut(ctx, dex.QuoteRequest{
				TokenIn:  tokenIn,
				TokenOut: tokenOut,
				AmountIn: amountIn,
			})
			quotes[slot] = quote

			a.metrics.ObserveQuote(time.Since(start), quote.Success)

			if quote.Success {
				a.logger.Debug("quote fetched",
					zap.String("source", client.Label()),
					zap.String("pair", tokenIn.Symbol+"/"+tokenOut.Symbol),
					zap.Float64("rate", quote.Rate),
				)
			}
		}(i, client)
	}
	wg.Wait()

	var exclusions []string
	for i, quote := range quotes {
		if !quote.Success {
			exclusions = append(exclusions, fmt.Sprintf("%s: %s", clients[i].Label(), quote.Exclusion))
		}
	}

	return quotes, exclusions
}

// Successful filters a quote list down to usable quotes.
func Successful(quotes []dex.Quote) []dex.Quote {
	var out []dex.Quote
	for _, q := range quotes {
		if q.Success {
			out = append(out, q)
		}
	}
	return out
}
