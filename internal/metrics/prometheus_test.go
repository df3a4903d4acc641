package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.BuysSubmitted.Inc()
	prom.Metrics.BuysRejected.Inc()
	prom.Metrics.QuoteFailures.Inc()
	prom.Metrics.StopLossTriggers.Inc()
	prom.Metrics.LiquidationOrders.Inc()
	prom.Metrics.LiquidationFailures.Inc()

	assertCounter(t, prom.buysSubmitted, 1)
	assertCounter(t, prom.buysRejected, 1)
	assertCounter(t, prom.quoteFailures, 1)
	assertCounter(t, prom.stopTriggers, 1)
	assertCounter(t, prom.liqOrders, 1)
	assertCounter(t, prom.liqFailures, 1)
}

func assertCounter(t *testing.T, counter prometheus.Counter, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(counter); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
