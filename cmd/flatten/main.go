package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"dca-guard-bot/internal/config"
	"dca-guard-bot/internal/logging"
	"dca-guard-bot/internal/lots"
	"dca-guard-bot/internal/market"
	"dca-guard-bot/internal/metrics"
	"dca-guard-bot/internal/strategy"
	"dca-guard-bot/internal/venue/rest"
)

// flatten re-runs the liquidation pass for a halted strategy. The bot
// never retries liquidation on its own after a restart; any leg that
// failed while the stop loss fired has to be flushed with this tool.
func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "print the sell plan and exit")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	token := strings.TrimSpace(os.Getenv("BROKER_API_TOKEN"))
	if token == "" {
		fatal(errors.New("BROKER_API_TOKEN is required"))
	}

	restClient := rest.New(cfg.REST.BaseURL, token, cfg.REST.Timeout, log)
	quotes := market.New(restClient, nil, cfg.Strategy.QuoteMaxAge, log)
	resolver := lots.New(cfg.Strategy.FractionalSuffix, cfg.Strategy.RoundLotSize)
	ctx := context.Background()

	if *dryRun {
		if err := printSellPlan(ctx, restClient, resolver); err != nil {
			fatal(err)
		}
		return
	}

	liquidator := strategy.NewLiquidator(
		&quoteAdapter{quotes: quotes},
		&gatewayAdapter{rest: restClient},
		resolver,
		log,
		metrics.NewNoop(),
	)
	liquidator.Flatten(ctx, time.Now())
}

func printSellPlan(ctx context.Context, restClient *rest.Client, resolver *lots.Resolver) error {
	positions, err := restClient.OpenPositions(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Println("no open positions")
		return nil
	}
	for _, pos := range positions {
		if pos.Volume <= 0 {
			continue
		}
		if !resolver.IsFractional(pos.Symbol) {
			fmt.Printf("close %s volume %.4f\n", pos.Symbol, pos.Volume)
			continue
		}
		for _, leg := range resolver.SellPlan(pos.Symbol, pos.Volume) {
			fmt.Printf("sell %s volume %.4f\n", leg.Symbol, leg.Volume)
		}
	}
	return nil
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

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
