package state

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Ledger keys for the persisted strategy fields. The values are written
// individually so a crash between ticks loses at most the fields not yet
// flushed, never the whole state.
const (
	KeyTotalSharesBought = "TotalSharesBought"
	KeyTotalCost         = "TotalCost"
	KeyLastBuyTime       = "LastBuyTime"
	KeyStopLossTriggered = "StopLossTriggered"
)

// Ledger is a typed view over a Store for the strategy's durable fields.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Float(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("ledger key %s holds %q: %w", key, raw, err)
	}
	return value, true, nil
}

func (l *Ledger) SetFloat(ctx context.Context, key string, value float64) error {
	return l.store.Set(ctx, key, strconv.FormatFloat(value, 'g', -1, 64))
}

func (l *Ledger) Bool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil || !ok {
		return false, false, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("ledger key %s holds %q: %w", key, raw, err)
	}
	return value, true, nil
}

func (l *Ledger) SetBool(ctx context.Context, key string, value bool) error {
	return l.store.Set(ctx, key, strconv.FormatBool(value))
}

// Time values are stored as Unix milliseconds.
func (l *Ledger) Time(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("ledger key %s holds %q: %w", key, raw, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (l *Ledger) SetTime(ctx context.Context, key string, value time.Time) error {
	return l.store.Set(ctx, key, strconv.FormatInt(value.UnixMilli(), 10))
}
