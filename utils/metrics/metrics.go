package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// ScanMetrics tracks quote and scan activity. All observe methods are
// nil-safe so the engine runs identically with metrics disabled.
type ScanMetrics struct {
	registry *prometheus.Registry

	QuotesTotal   prometheus.Counter
	QuoteFailures prometheus.Counter
	QuoteLatency  prometheus.Histogram
	PairsScanned  prometheus.Counter
	PairsWithOpps prometheus.Counter
	PairLatency   prometheus.Histogram
	Opportunities prometheus.Counter
	ScanDuration  prometheus.Histogram
}

// NewScanMetrics creates the metric set on a private registry.
func NewScanMetrics(namespace string) *ScanMetrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &ScanMetrics{
		registry: registry,
		QuotesTotal: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Total number of quote requests issued",
		}),
		QuoteFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_failures_total",
			Help:      "Total number of excluded quotes",
		}),
		QuoteLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_latency_seconds",
			Help:      "Quote round-trip latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		PairsScanned: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_scanned_total",
			Help:      "Total number of token pairs scanned",
		}),
		PairsWithOpps: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_with_opportunities_total",
			Help:      "Pairs that produced at least one opportunity",
		}),
		PairLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_scan_seconds",
			Help:      "Per-pair scan duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Opportunities: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total opportunities found across runs",
		}),
		ScanDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Whole-run scan duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

// ObserveQuote records one quote round trip.
func (m *ScanMetrics) ObserveQuote(elapsed time.Duration, success bool) {
	if m == nil {
		return
	}
	m.QuotesTotal.Inc()
	m.QuoteLatency.Observe(elapsed.Seconds())
	if !success {
		m.QuoteFailures.Inc()
	}
}

// ObservePair records one completed pair scan.
func (m *ScanMetrics) ObservePair(elapsed time.Duration, hasOpportunity bool) {
	if m == nil {
		return
	}
	m.PairsScanned.Inc()
	m.PairLatency.Observe(elapsed.Seconds())
	if hasOpportunity {
		m.PairsWithOpps.Inc()
	}
}

// ObserveRun records one whole scan run.
func (m *ScanMetrics) ObserveRun(elapsed time.Duration, opportunities int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(elapsed.Seconds())
	m.Opportunities.Add(float64(opportunities))
}

// Gather exposes the raw metric families, used by tests and debug dumps.
func (m *ScanMetrics) Gather() ([]*dto.MetricFamily, error) {
	if m == nil {
		return nil, nil
	}
	return m.registry.Gather()
}

// Serve exposes the registry on addr via promhttp. Blocks; run in a
// goroutine.
func (m *ScanMetrics) Serve(addr string, logger *zap.Logger) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if logger != nil {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
	}
	return http.ListenAndServe(addr, mux)
}
