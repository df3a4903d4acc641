package config

import (
	"testing"
	"time"
)

func validStrategy() StrategyConfig {
	return StrategyConfig{
		Symbol:          "XYZ",
		TotalInvestment: 9000,
		StopLossPct:     0.4,
		DurationDays:    90,
	}
}

func TestStrategyDefaults(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
	applyDefaults(cfg)
	if cfg.Strategy.TickInterval != time.Minute {
		t.Fatalf("expected tick interval default, got %v", cfg.Strategy.TickInterval)
	}
	if cfg.Strategy.BuyInterval != 24*time.Hour {
		t.Fatalf("expected buy interval default, got %v", cfg.Strategy.BuyInterval)
	}
	if cfg.Strategy.FractionalSuffix != "F" {
		t.Fatalf("expected fractional suffix default, got %q", cfg.Strategy.FractionalSuffix)
	}
	if cfg.Strategy.RoundLotSize != 100 {
		t.Fatalf("expected round lot size default, got %v", cfg.Strategy.RoundLotSize)
	}
	if cfg.Strategy.QuoteMaxAge <= 0 {
		t.Fatalf("expected quote max age default, got %v", cfg.Strategy.QuoteMaxAge)
	}
}

func TestMetricsDefaults(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
	applyDefaults(cfg)
	if cfg.Metrics.Address != "127.0.0.1:9001" {
		t.Fatalf("expected metrics address default, got %q", cfg.Metrics.Address)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("expected metrics path default, got %q", cfg.Metrics.Path)
	}
}

func TestWSURLDerivedFromREST(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}}
	applyDefaults(cfg)
	if cfg.WS.URL != "wss://broker.example/ws" {
		t.Fatalf("expected derived ws url, got %q", cfg.WS.URL)
	}
}

func TestWSURLRespectsExplicitValue(t *testing.T) {
	cfg := &Config{
		REST: RESTConfig{BaseURL: "https://broker.example"},
		WS:   WSConfig{URL: "wss://override.example/ws"},
	}
	applyDefaults(cfg)
	if cfg.WS.URL != "wss://override.example/ws" {
		t.Fatalf("expected explicit ws url, got %q", cfg.WS.URL)
	}
}

func TestValidateRequiresSymbol(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
	cfg.Strategy.Symbol = ""
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestValidateRequiresPositiveInvestment(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
	cfg.Strategy.TotalInvestment = 0
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for non-positive investment")
	}
}

func TestValidateRequiresPositiveDuration(t *testing.T) {
	cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
	cfg.Strategy.DurationDays = 0
	applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for non-positive duration")
	}
}

func TestValidateStopLossPctRange(t *testing.T) {
	for _, pct := range []float64{-0.1, 1.1} {
		cfg := &Config{REST: RESTConfig{BaseURL: "https://broker.example"}, Strategy: validStrategy()}
		cfg.Strategy.StopLossPct = pct
		applyDefaults(cfg)
		if err := validate(cfg); err == nil {
			t.Fatalf("expected error for stop loss pct %v", pct)
		}
	}
}

func TestValidateRejectsJournalWithoutDSN(t *testing.T) {
	t.Setenv("DCA_JOURNAL_DSN", "")
	cfg := &Config{
		REST:     RESTConfig{BaseURL: "https://broker.example"},
		Strategy: validStrategy(),
		Journal:  JournalConfig{Enabled: true},
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for enabled journal without dsn")
	}
}

func TestValidateRejectsTelegramWithoutConfig(t *testing.T) {
	t.Setenv("DCA_TELEGRAM_TOKEN", "")
	t.Setenv("DCA_TELEGRAM_CHAT_ID", "")
	cfg := &Config{
		REST:     RESTConfig{BaseURL: "https://broker.example"},
		Strategy: validStrategy(),
		Telegram: TelegramConfig{Enabled: true},
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing telegram token/chat_id")
	}
}

func TestTelegramEnvOverridesConfig(t *testing.T) {
	t.Setenv("DCA_TELEGRAM_TOKEN", "env-token")
	t.Setenv("DCA_TELEGRAM_CHAT_ID", "123")
	cfg := &Config{
		REST:     RESTConfig{BaseURL: "https://broker.example"},
		Strategy: validStrategy(),
		Telegram: TelegramConfig{Enabled: true, Token: "config-token", ChatID: "999"},
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("expected env token override, got %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != "123" {
		t.Fatalf("expected env chat id override, got %q", cfg.Telegram.ChatID)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected valid config with env overrides, got %v", err)
	}
}
