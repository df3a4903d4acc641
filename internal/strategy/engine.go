package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dca-guard-bot/internal/lots"
	"dca-guard-bot/internal/metrics"
	"dca-guard-bot/internal/state"

	"go.uber.org/zap"
)

// Engine owns the DCA strategy state and drives the per-tick decisions:
// at most one buy per cadence window while the investment window is open,
// and a stop-loss check against the weighted average entry price on every
// tick. Ticks are processed one at a time to completion; the engine is not
// safe for concurrent OnTick calls and does not need to be.
type Engine struct {
	cfg        Config
	daily      float64
	buyEvery   time.Duration
	quotes     QuoteProvider
	orders     OrderGateway
	ledger     *state.Ledger
	latch      *Latch
	liquidator *Liquidator
	log        *zap.Logger
	metrics    *metrics.Metrics
	recorder   Recorder
	notifier   Notifier

	st State
}

func New(cfg Config, quotes QuoteProvider, orders OrderGateway, ledger *state.Ledger, resolver *lots.Resolver, log *zap.Logger, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewNoop()
	}
	e := &Engine{
		cfg:      cfg,
		daily:    cfg.TotalInvestment / float64(cfg.DurationDays),
		buyEvery: cfg.buyInterval(),
		quotes:   quotes,
		orders:   orders,
		ledger:   ledger,
		latch:    NewLatch(),
		log:      log,
		metrics:  m,
	}
	e.liquidator = NewLiquidator(quotes, orders, resolver, log, m)
	return e
}

func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
	e.liquidator.SetRecorder(r)
}

func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Init derives the run window and overlays any state found in the ledger.
// The start date is recomputed on every process start; only the four
// durable fields survive restarts.
func (e *Engine) Init(ctx context.Context, now time.Time) error {
	e.st = State{
		StartDate:   now,
		LastBuyTime: now.Add(-e.buyEvery),
	}
	shares, ok, err := e.ledger.Float(ctx, state.KeyTotalSharesBought)
	if err != nil {
		return fmt.Errorf("load %s: %w", state.KeyTotalSharesBought, err)
	}
	if ok {
		e.st.TotalSharesBought = shares
	}
	cost, ok, err := e.ledger.Float(ctx, state.KeyTotalCost)
	if err != nil {
		return fmt.Errorf("load %s: %w", state.KeyTotalCost, err)
	}
	if ok {
		e.st.TotalCost = cost
	}
	if e.st.TotalSharesBought < 0 || e.st.TotalCost < 0 {
		return errors.New("ledger holds negative totals")
	}
	lastBuy, ok, err := e.ledger.Time(ctx, state.KeyLastBuyTime)
	if err != nil {
		return fmt.Errorf("load %s: %w", state.KeyLastBuyTime, err)
	}
	if ok {
		e.st.LastBuyTime = lastBuy
	}
	triggered, ok, err := e.ledger.Bool(ctx, state.KeyStopLossTriggered)
	if err != nil {
		return fmt.Errorf("load %s: %w", state.KeyStopLossTriggered, err)
	}
	if ok && triggered {
		e.latch.Apply(EventStopLoss)
	}
	if e.st.TotalSharesBought > 0 {
		e.st.AveragePrice = e.st.TotalCost / e.st.TotalSharesBought
	}
	e.log.Info("strategy initialized",
		zap.String("symbol", e.cfg.Symbol),
		zap.Float64("daily_investment", e.daily),
		zap.Float64("total_shares", e.st.TotalSharesBought),
		zap.Float64("average_price", e.st.AveragePrice),
		zap.String("phase", string(e.latch.Current())),
	)
	return nil
}

// OnTick runs one decision pass. Ticks must arrive in non-decreasing time
// order; the tick frequency itself is up to the caller. The returned error
// is always a persistence failure, which the caller should treat as fatal.
func (e *Engine) OnTick(ctx context.Context, now time.Time) error {
	if e.latch.Current() == PhaseHalted {
		return nil
	}
	canBuy := !now.After(e.st.StartDate.AddDate(0, 0, e.cfg.DurationDays))
	if canBuy && now.Sub(e.st.LastBuyTime) >= e.buyEvery {
		if err := e.tryBuy(ctx, now); err != nil {
			return err
		}
	}
	quote, err := e.quotes.Quote(ctx, e.cfg.Symbol)
	if err != nil || quote.Bid <= 0 {
		// Without a bid the stop-loss check cannot proceed; the tick ends
		// quietly and the next one tries again.
		e.metrics.QuoteFailures.Inc()
		e.log.Debug("bid unavailable, skipping stop-loss check", zap.Error(err))
		return nil
	}
	stopPrice := e.st.AveragePrice * (1 - e.cfg.StopLossPct)
	if quote.Bid >= stopPrice {
		return nil
	}
	e.latch.Apply(EventStopLoss)
	// The latch is made durable before any liquidation order goes out, so a
	// crash mid-liquidation still leaves the strategy halted on restart.
	if err := e.ledger.SetBool(ctx, state.KeyStopLossTriggered, true); err != nil {
		return fmt.Errorf("persist stop-loss latch: %w", err)
	}
	e.metrics.StopLossTriggers.Inc()
	e.log.Warn("stop loss triggered, flattening all positions",
		zap.Float64("bid", quote.Bid),
		zap.Float64("stop_price", stopPrice),
		zap.Float64("average_price", e.st.AveragePrice),
	)
	e.send(ctx, fmt.Sprintf("Stop loss triggered on %s: bid %.4f below stop %.4f, flattening all positions",
		e.cfg.Symbol, quote.Bid, stopPrice))
	e.liquidator.Flatten(ctx, now)
	return nil
}

func (e *Engine) tryBuy(ctx context.Context, now time.Time) error {
	quote, err := e.quotes.Quote(ctx, e.cfg.Symbol)
	if err != nil || quote.Ask <= 0 {
		e.metrics.QuoteFailures.Inc()
		e.log.Debug("ask unavailable, skipping daily buy", zap.Error(err))
		return nil
	}
	volume := math.Floor(e.daily / quote.Ask)
	if volume <= 0 {
		e.log.Debug("daily tranche below one share",
			zap.Float64("daily_investment", e.daily),
			zap.Float64("ask", quote.Ask),
		)
		return nil
	}
	if err := e.orders.SubmitBuy(ctx, e.cfg.Symbol, volume, quote.Ask); err != nil {
		e.metrics.BuysRejected.Inc()
		e.log.Warn("daily buy rejected", zap.Float64("volume", volume), zap.Float64("ask", quote.Ask), zap.Error(err))
		return nil
	}
	e.metrics.BuysSubmitted.Inc()
	cost := volume * quote.Ask
	e.st.TotalSharesBought += volume
	e.st.TotalCost += cost
	e.st.AveragePrice = e.st.TotalCost / e.st.TotalSharesBought
	e.st.LastBuyTime = now
	if err := e.persistBuy(ctx); err != nil {
		return fmt.Errorf("persist buy state: %w", err)
	}
	e.log.Info("daily buy filled",
		zap.Float64("volume", volume),
		zap.Float64("ask", quote.Ask),
		zap.Float64("total_shares", e.st.TotalSharesBought),
		zap.Float64("average_price", e.st.AveragePrice),
	)
	if e.recorder != nil {
		e.recorder.RecordBuy(BuyRecord{
			Time:         now,
			Symbol:       e.cfg.Symbol,
			Volume:       volume,
			Price:        quote.Ask,
			Cost:         cost,
			TotalShares:  e.st.TotalSharesBought,
			AveragePrice: e.st.AveragePrice,
		})
	}
	e.send(ctx, fmt.Sprintf("Bought %.0f %s at %.4f (avg %.4f)", volume, e.cfg.Symbol, quote.Ask, e.st.AveragePrice))
	return nil
}

func (e *Engine) persistBuy(ctx context.Context) error {
	if err := e.ledger.SetFloat(ctx, state.KeyTotalSharesBought, e.st.TotalSharesBought); err != nil {
		return err
	}
	if err := e.ledger.SetFloat(ctx, state.KeyTotalCost, e.st.TotalCost); err != nil {
		return err
	}
	return e.ledger.SetTime(ctx, state.KeyLastBuyTime, e.st.LastBuyTime)
}

func (e *Engine) send(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, message); err != nil {
		e.log.Warn("notification failed", zap.Error(err))
	}
}

func (e *Engine) Halted() bool {
	return e.latch.Current() == PhaseHalted
}

// State returns a copy of the accumulated strategy state.
func (e *Engine) State() State {
	return e.st
}

func (e *Engine) DailyInvestment() float64 {
	return e.daily
}
