package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, m *ScanMetrics, name string) float64 {
	t.Helper()
	families, err := m.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric family %s not found", name)
	return 0
}

func TestObserveQuoteCountsFailures(t *testing.T) {
	m := NewScanMetrics("hevm")

	m.ObserveQuote(10*time.Millisecond, true)
	m.ObserveQuote(10*time.Millisecond, false)
	m.ObserveQuote(10*time.Millisecond, true)

	assert.Equal(t, 3.0, findFamily(t, m, "hevm_quotes_total"))
	assert.Equal(t, 1.0, findFamily(t, m, "hevm_quote_failures_total"))
}

func TestObservePairAndRun(t *testing.T) {
	m := NewScanMetrics("hevm")

	m.ObservePair(time.Second, true)
	m.ObservePair(time.Second, false)
	m.ObserveRun(5*time.Second, 7)

	assert.Equal(t, 2.0, findFamily(t, m, "hevm_pairs_scanned_total"))
	assert.Equal(t, 1.0, findFamily(t, m, "hevm_pairs_with_opportunities_total"))
	assert.Equal(t, 7.0, findFamily(t, m, "hevm_opportunities_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ScanMetrics
	m.ObserveQuote(time.Millisecond, false)
	m.ObservePair(time.Millisecond, true)
	m.ObserveRun(time.Millisecond, 1)

	families, err := m.Gather()
	assert.NoError(t, err)
	assert.Nil(t, families)
	assert.NoError(t, m.Serve(":0", nil))
}
