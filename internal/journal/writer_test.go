package journal

import (
	"context"
	"testing"
	"time"

	"dca-guard-bot/internal/config"
	"dca-guard-bot/internal/strategy"

	"go.uber.org/zap"
)

func TestDisabledJournalReturnsNil(t *testing.T) {
	writer, err := New(config.JournalConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("disabled journal must not error: %v", err)
	}
	if writer != nil {
		t.Fatalf("disabled journal must be nil")
	}
}

func TestEnabledJournalRequiresDSN(t *testing.T) {
	if _, err := New(config.JournalConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var writer *Writer
	writer.Start(context.Background())
	writer.RecordBuy(strategy.BuyRecord{Time: time.Now(), Symbol: "XYZ"})
	writer.RecordSell(strategy.SellRecord{Time: time.Now(), Symbol: "XYZ"})
	if err := writer.Close(); err != nil {
		t.Fatalf("nil writer close: %v", err)
	}
}
