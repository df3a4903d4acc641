package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dca-guard-bot/internal/alerts"
	"dca-guard-bot/internal/config"
	"dca-guard-bot/internal/journal"
	"dca-guard-bot/internal/lots"
	"dca-guard-bot/internal/market"
	"dca-guard-bot/internal/metrics"
	"dca-guard-bot/internal/state"
	"dca-guard-bot/internal/state/sqlite"
	"dca-guard-bot/internal/strategy"
	"dca-guard-bot/internal/venue/rest"
	"dca-guard-bot/internal/venue/ws"

	"go.uber.org/zap"
)

// App owns the wiring: venue clients, quote cache, state store, journal,
// metrics server and the strategy engine driven by a tick loop.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *sqlite.Store
	rest    *rest.Client
	ws      *ws.Client
	quotes  *market.Quotes
	engine  *strategy.Engine
	journal *journal.Writer
	alerts  *alerts.Telegram
	prom    *metrics.Prometheus
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(os.Getenv("BROKER_API_TOKEN"))
	if token == "" {
		_ = store.Close()
		return nil, errors.New("BROKER_API_TOKEN is required")
	}
	restClient := rest.New(cfg.REST.BaseURL, token, cfg.REST.Timeout, log)
	wsClient := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	quotes := market.New(restClient, wsClient, cfg.Strategy.QuoteMaxAge, log)

	resolver := lots.New(cfg.Strategy.FractionalSuffix, cfg.Strategy.RoundLotSize)
	quotes.Track(trackedSymbols(cfg.Strategy.Symbol, resolver)...)

	journalWriter, err := journal.New(cfg.Journal, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var prom *metrics.Prometheus
	engineMetrics := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		engineMetrics = prom.Metrics
	}

	engine := strategy.New(
		strategyConfig(cfg.Strategy),
		&quoteAdapter{quotes: quotes},
		&gatewayAdapter{rest: restClient},
		state.NewLedger(store),
		resolver,
		log,
		engineMetrics,
	)
	if journalWriter != nil {
		engine.SetRecorder(journalWriter)
	}
	alertsClient := alerts.NewTelegram(cfg.Telegram, log)
	engine.SetNotifier(alertsClient)

	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		rest:    restClient,
		ws:      wsClient,
		quotes:  quotes,
		engine:  engine,
		journal: journalWriter,
		alerts:  alertsClient,
		prom:    prom,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.journal.Close()

	if err := a.engine.Init(ctx, time.Now()); err != nil {
		return err
	}
	if a.engine.Halted() {
		a.log.Warn("stop loss latch is engaged; no further buys will be made",
			zap.String("symbol", a.cfg.Strategy.Symbol))
	}
	a.journal.Start(ctx)
	if err := a.quotes.Start(ctx); err != nil {
		a.log.Warn("quote stream start failed, using rest fallback", zap.Error(err))
	}
	if a.prom != nil {
		a.serveMetrics(ctx)
	}

	st := a.engine.State()
	a.log.Info("strategy started",
		zap.String("symbol", a.cfg.Strategy.Symbol),
		zap.Float64("daily_investment", a.engine.DailyInvestment()),
		zap.Float64("total_shares", st.TotalSharesBought),
		zap.Float64("average_price", st.AveragePrice),
	)

	ticker := time.NewTicker(a.cfg.Strategy.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.engine.OnTick(ctx, time.Now()); err != nil {
				return err
			}
		}
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
}

// trackedSymbols covers both legs of a fractional holding so the stream
// warms the cache for liquidation quotes as well as the buy symbol.
func trackedSymbols(symbol string, resolver *lots.Resolver) []string {
	symbols := []string{symbol}
	if resolver.IsFractional(symbol) {
		symbols = append(symbols, resolver.Base(symbol))
	} else {
		symbols = append(symbols, resolver.Fractional(symbol))
	}
	return symbols
}

func strategyConfig(cfg config.StrategyConfig) strategy.Config {
	return strategy.Config{
		Symbol:          cfg.Symbol,
		TotalInvestment: cfg.TotalInvestment,
		StopLossPct:     cfg.StopLossPct,
		DurationDays:    cfg.DurationDays,
		BuyInterval:     cfg.BuyInterval,
	}
}

type quoteAdapter struct {
	quotes *market.Quotes
}

func (q *quoteAdapter) Quote(ctx context.Context, symbol string) (strategy.Quote, error) {
	quote, err := q.quotes.Quote(ctx, symbol)
	if err != nil {
		return strategy.Quote{}, err
	}
	return strategy.Quote{Ask: quote.Ask, Bid: quote.Bid}, nil
}

type gatewayAdapter struct {
	rest *rest.Client
}

func (g *gatewayAdapter) SubmitBuy(ctx context.Context, symbol string, volume, price float64) error {
	return g.rest.SubmitBuy(ctx, symbol, volume, price)
}

func (g *gatewayAdapter) SubmitSell(ctx context.Context, symbol string, volume, price float64) error {
	return g.rest.SubmitSell(ctx, symbol, volume, price)
}

func (g *gatewayAdapter) ClosePosition(ctx context.Context, symbol string) error {
	return g.rest.ClosePosition(ctx, symbol)
}

func (g *gatewayAdapter) OpenPositions(ctx context.Context) ([]strategy.Position, error) {
	positions, err := g.rest.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]strategy.Position, 0, len(positions))
	for _, pos := range positions {
		out = append(out, strategy.Position{Symbol: pos.Symbol, Volume: pos.Volume, Side: pos.Side})
	}
	return out, nil
}
