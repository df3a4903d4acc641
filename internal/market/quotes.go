package market

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dca-guard-bot/internal/venue/rest"
	"dca-guard-bot/internal/venue/ws"

	"go.uber.org/zap"
)

// Quote carries the best ask and bid for one symbol. A non-positive side
// means the venue has no price to offer right now.
type Quote struct {
	Ask float64
	Bid float64
	At  time.Time
}

// Quotes serves best bid/ask lookups from the streaming feed, falling back
// to the REST quote endpoint when the cache is cold or stale.
type Quotes struct {
	rest   *rest.Client
	ws     *ws.Client
	log    *zap.Logger
	maxAge time.Duration

	mu      sync.RWMutex
	cache   map[string]Quote
	tracked []string
}

func New(restClient *rest.Client, wsClient *ws.Client, maxAge time.Duration, log *zap.Logger) *Quotes {
	if maxAge <= 0 {
		maxAge = 5 * time.Second
	}
	return &Quotes{
		rest:   restClient,
		ws:     wsClient,
		log:    log,
		maxAge: maxAge,
		cache:  make(map[string]Quote),
	}
}

// Track registers symbols for the streaming subscription. Untracked symbols
// are still quotable through the REST fallback.
func (q *Quotes) Track(symbols ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracked = append(q.tracked, symbols...)
}

func (q *Quotes) Start(ctx context.Context) error {
	if q.ws == nil {
		return nil
	}
	q.mu.RLock()
	tracked := append([]string(nil), q.tracked...)
	q.mu.RUnlock()
	if err := q.ws.Connect(ctx); err != nil {
		return err
	}
	sub := map[string]any{"op": "subscribe", "channel": "quotes", "symbols": tracked}
	if err := q.ws.Subscribe(ctx, sub); err != nil {
		return err
	}
	go func() {
		_ = q.ws.Run(ctx, q.handleMessage)
	}()
	return nil
}

func (q *Quotes) Quote(ctx context.Context, symbol string) (Quote, error) {
	if cached, ok := q.cached(symbol); ok {
		return cached, nil
	}
	if q.rest == nil {
		return Quote{}, errors.New("no quote source for " + symbol)
	}
	fetched, err := q.rest.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	quote := Quote{Ask: fetched.Ask, Bid: fetched.Bid, At: time.Now()}
	q.store(symbol, quote)
	return quote, nil
}

func (q *Quotes) cached(symbol string) (Quote, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	quote, ok := q.cache[symbol]
	if !ok || time.Since(quote.At) > q.maxAge {
		return Quote{}, false
	}
	return quote, true
}

func (q *Quotes) store(symbol string, quote Quote) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cache[symbol] = quote
}

type quoteMessage struct {
	Channel string `json:"channel"`
	Data    []struct {
		Symbol string  `json:"symbol"`
		Ask    float64 `json:"ask"`
		Bid    float64 `json:"bid"`
	} `json:"data"`
}

func (q *Quotes) handleMessage(raw json.RawMessage) {
	var msg quoteMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		if q.log != nil {
			q.log.Debug("quote frame parse failed", zap.Error(err))
		}
		return
	}
	if msg.Channel != "quotes" {
		return
	}
	now := time.Now()
	for _, tick := range msg.Data {
		if tick.Symbol == "" {
			continue
		}
		q.store(tick.Symbol, Quote{Ask: tick.Ask, Bid: tick.Bid, At: now})
	}
}
