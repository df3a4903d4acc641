package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	BuysSubmitted       Counter
	BuysRejected        Counter
	QuoteFailures       Counter
	StopLossTriggers    Counter
	LiquidationOrders   Counter
	LiquidationFailures Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		BuysSubmitted:       n,
		BuysRejected:        n,
		QuoteFailures:       n,
		StopLossTriggers:    n,
		LiquidationOrders:   n,
		LiquidationFailures: n,
	}
}
