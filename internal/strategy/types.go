package strategy

import (
	"context"
	"time"
)

// Quote is a best ask/bid pair. A non-positive side means the price is
// unavailable and the dependent action must be skipped for this tick.
type Quote struct {
	Ask float64
	Bid float64
}

type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Position is one open holding as reported by the venue. It is read fresh
// on every liquidation pass and never cached by the engine.
type Position struct {
	Symbol string
	Volume float64
	Side   string
}

// OrderGateway submits market orders to the venue. Every call is a single
// attempt; a rejection is returned as an error and never retried here.
type OrderGateway interface {
	SubmitBuy(ctx context.Context, symbol string, volume, price float64) error
	SubmitSell(ctx context.Context, symbol string, volume, price float64) error
	ClosePosition(ctx context.Context, symbol string) error
	OpenPositions(ctx context.Context) ([]Position, error)
}

// Config are the immutable run parameters of the strategy.
type Config struct {
	Symbol          string
	TotalInvestment float64
	StopLossPct     float64
	DurationDays    int
	// BuyInterval is the purchase cadence; zero means one day.
	BuyInterval time.Duration
}

func (c Config) buyInterval() time.Duration {
	if c.BuyInterval > 0 {
		return c.BuyInterval
	}
	return 24 * time.Hour
}

// State is the accumulated position of the strategy. AveragePrice is always
// recomputed from the totals, never stored on its own. StartDate is derived
// at process start and intentionally not persisted, so a restart mid-run
// reopens the investment window from that moment.
type State struct {
	TotalSharesBought float64
	TotalCost         float64
	AveragePrice      float64
	LastBuyTime       time.Time
	StartDate         time.Time
}

// BuyRecord describes one filled daily purchase.
type BuyRecord struct {
	Time         time.Time
	Symbol       string
	Volume       float64
	Price        float64
	Cost         float64
	TotalShares  float64
	AveragePrice float64
}

// SellRecord describes one liquidation order. Closed marks a whole-position
// close as opposed to a sized sell.
type SellRecord struct {
	Time   time.Time
	Symbol string
	Volume float64
	Price  float64
	Closed bool
}

type Recorder interface {
	RecordBuy(record BuyRecord)
	RecordSell(record SellRecord)
}

type Notifier interface {
	Send(ctx context.Context, message string) error
}
