package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dca-guard-bot/internal/config"
	"dca-guard-bot/internal/lots"
	"dca-guard-bot/internal/venue/rest"

	"go.uber.org/zap"
)

func TestTrackedSymbolsCoversBothLegs(t *testing.T) {
	resolver := lots.New("F", 100)
	got := trackedSymbols("XYZF", resolver)
	if len(got) != 2 || got[0] != "XYZF" || got[1] != "XYZ" {
		t.Fatalf("unexpected tracked symbols for fractional buy: %v", got)
	}
	got = trackedSymbols("XYZ", resolver)
	if len(got) != 2 || got[0] != "XYZ" || got[1] != "XYZF" {
		t.Fatalf("unexpected tracked symbols for round-lot buy: %v", got)
	}
}

func TestStrategyConfigMapping(t *testing.T) {
	cfg := config.StrategyConfig{
		Symbol:          "XYZF",
		TotalInvestment: 9000,
		StopLossPct:     0.4,
		DurationDays:    90,
		BuyInterval:     12 * time.Hour,
	}
	got := strategyConfig(cfg)
	if got.Symbol != "XYZF" || got.TotalInvestment != 9000 || got.StopLossPct != 0.4 {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if got.DurationDays != 90 || got.BuyInterval != 12*time.Hour {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestGatewayAdapterConvertsPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/positions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"XYZF","volume":250,"side":"long"}]`))
	}))
	defer server.Close()

	gw := &gatewayAdapter{rest: rest.New(server.URL, "token", time.Second, zap.NewNop())}
	positions, err := gw.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("open positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Symbol != "XYZF" || positions[0].Volume != 250 || positions[0].Side != "long" {
		t.Fatalf("unexpected position: %+v", positions[0])
	}
}
