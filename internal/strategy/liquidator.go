package strategy

import (
	"context"
	"time"

	"dca-guard-bot/internal/lots"
	"dca-guard-bot/internal/metrics"

	"go.uber.org/zap"
)

// Liquidator flattens every open position in one pass. Sub-orders are
// independent: any of them may fail, the failure is logged and the pass
// keeps going. The pass runs over the snapshot of positions read at its
// start and is not retried on partial failure.
type Liquidator struct {
	quotes   QuoteProvider
	orders   OrderGateway
	lots     *lots.Resolver
	log      *zap.Logger
	metrics  *metrics.Metrics
	recorder Recorder
}

func NewLiquidator(quotes QuoteProvider, orders OrderGateway, resolver *lots.Resolver, log *zap.Logger, m *metrics.Metrics) *Liquidator {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Liquidator{
		quotes:  quotes,
		orders:  orders,
		lots:    resolver,
		log:     log,
		metrics: m,
	}
}

func (l *Liquidator) SetRecorder(r Recorder) {
	l.recorder = r
}

func (l *Liquidator) Flatten(ctx context.Context, now time.Time) {
	positions, err := l.orders.OpenPositions(ctx)
	if err != nil {
		l.metrics.LiquidationFailures.Inc()
		l.log.Warn("position enumeration failed", zap.Error(err))
		return
	}
	for _, pos := range positions {
		if pos.Volume <= 0 {
			continue
		}
		if !l.lots.IsFractional(pos.Symbol) {
			l.closeWhole(ctx, now, pos)
			continue
		}
		l.sellFractional(ctx, now, pos)
	}
}

func (l *Liquidator) closeWhole(ctx context.Context, now time.Time, pos Position) {
	l.metrics.LiquidationOrders.Inc()
	if err := l.orders.ClosePosition(ctx, pos.Symbol); err != nil {
		l.metrics.LiquidationFailures.Inc()
		l.log.Warn("close position failed", zap.String("symbol", pos.Symbol), zap.Error(err))
		return
	}
	l.log.Info("position closed", zap.String("symbol", pos.Symbol), zap.Float64("volume", pos.Volume))
	l.record(SellRecord{Time: now, Symbol: pos.Symbol, Volume: pos.Volume, Closed: true})
}

// sellFractional splits a fractional holding into round lots on the base
// symbol and the odd-lot remainder on the fractional symbol; the venue
// refuses a single close once holdings are fractional.
func (l *Liquidator) sellFractional(ctx context.Context, now time.Time, pos Position) {
	for _, leg := range l.lots.SellPlan(pos.Symbol, pos.Volume) {
		quote, err := l.quotes.Quote(ctx, leg.Symbol)
		if err != nil || quote.Ask <= 0 {
			l.metrics.QuoteFailures.Inc()
			l.log.Warn("ask unavailable, skipping liquidation leg",
				zap.String("symbol", leg.Symbol),
				zap.Float64("volume", leg.Volume),
				zap.Error(err),
			)
			continue
		}
		l.metrics.LiquidationOrders.Inc()
		if err := l.orders.SubmitSell(ctx, leg.Symbol, leg.Volume, quote.Ask); err != nil {
			l.metrics.LiquidationFailures.Inc()
			l.log.Warn("liquidation sell rejected",
				zap.String("symbol", leg.Symbol),
				zap.Float64("volume", leg.Volume),
				zap.Error(err),
			)
			continue
		}
		l.log.Info("liquidation sell submitted",
			zap.String("symbol", leg.Symbol),
			zap.Float64("volume", leg.Volume),
			zap.Float64("ask", quote.Ask),
		)
		l.record(SellRecord{Time: now, Symbol: leg.Symbol, Volume: leg.Volume, Price: quote.Ask})
	}
}

func (l *Liquidator) record(rec SellRecord) {
	if l.recorder != nil {
		l.recorder.RecordSell(rec)
	}
}
