package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "dca_guard_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry      *prometheus.Registry
	buysSubmitted prometheus.Counter
	buysRejected  prometheus.Counter
	quoteFailures prometheus.Counter
	stopTriggers  prometheus.Counter
	liqOrders     prometheus.Counter
	liqFailures   prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	buysSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "buys_submitted_total",
		Help:      "Total number of daily buy orders accepted by the venue.",
	})
	buysRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "buys_rejected_total",
		Help:      "Total number of daily buy orders rejected by the venue.",
	})
	quoteFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "quote_failures_total",
		Help:      "Total number of quote lookups that returned no usable price.",
	})
	stopTriggers := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "stop_loss_triggers_total",
		Help:      "Total number of stop-loss latch engagements.",
	})
	liqOrders := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "liquidation_orders_total",
		Help:      "Total number of liquidation orders submitted.",
	})
	liqFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "liquidation_failures_total",
		Help:      "Total number of liquidation orders that failed.",
	})

	registry.MustRegister(buysSubmitted, buysRejected, quoteFailures, stopTriggers, liqOrders, liqFailures)

	m := &Metrics{
		BuysSubmitted:       promCounter{buysSubmitted},
		BuysRejected:        promCounter{buysRejected},
		QuoteFailures:       promCounter{quoteFailures},
		StopLossTriggers:    promCounter{stopTriggers},
		LiquidationOrders:   promCounter{liqOrders},
		LiquidationFailures: promCounter{liqFailures},
	}

	return &Prometheus{
		Metrics:       m,
		registry:      registry,
		buysSubmitted: buysSubmitted,
		buysRejected:  buysRejected,
		quoteFailures: quoteFailures,
		stopTriggers:  stopTriggers,
		liqOrders:     liqOrders,
		liqFailures:   liqFailures,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
