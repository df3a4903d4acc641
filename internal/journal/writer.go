package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"dca-guard-bot/internal/config"
	"dca-guard-bot/internal/strategy"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Writer records fills and liquidation orders in Postgres for later
// review. Writes are asynchronous and best effort; the strategy never
// blocks on the journal, and a full queue drops entries.
type Writer struct {
	db       *sql.DB
	log      *zap.Logger
	schema   string
	buys     chan strategy.BuyRecord
	sells    chan strategy.SellRecord
	started  atomic.Bool
	dropBuy  atomic.Uint64
	dropSell atomic.Uint64
}

// New connects and prepares the journal tables. A disabled config
// returns (nil, nil); the nil *Writer is safe to use.
func New(cfg config.JournalConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("journal dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		buys:   make(chan strategy.BuyRecord, queueSize),
		sells:  make(chan strategy.SellRecord, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// RecordBuy queues a filled purchase. Implements strategy.Recorder.
func (w *Writer) RecordBuy(record strategy.BuyRecord) {
	if w == nil {
		return
	}
	select {
	case w.buys <- record:
		return
	default:
		if w.dropBuy.Add(1) == 1 && w.log != nil {
			w.log.Warn("journal buy queue full")
		}
	}
}

// RecordSell queues a liquidation order. Implements strategy.Recorder.
func (w *Writer) RecordSell(record strategy.SellRecord) {
	if w == nil {
		return
	}
	select {
	case w.sells <- record:
		return
	default:
		if w.dropSell.Add(1) == 1 && w.log != nil {
			w.log.Warn("journal sell queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case record := <-w.buys:
			w.writeBuy(ctx, record)
		case record := <-w.sells:
			w.writeSell(ctx, record)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("journal db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		cost DOUBLE PRECISION NOT NULL,
		total_shares DOUBLE PRECISION NOT NULL,
		average_price DOUBLE PRECISION NOT NULL
	)`, w.table("buy_fills"))); err != nil {
		return err
	}
	return w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		closed BOOLEAN NOT NULL
	)`, w.table("liquidation_orders")))
}

func (w *Writer) writeBuy(ctx context.Context, record strategy.BuyRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, volume, price, cost, total_shares, average_price
	) VALUES ($1,$2,$3,$4,$5,$6,$7)`, w.table("buy_fills"))
	if _, err := w.db.ExecContext(ctx, query,
		record.Time,
		record.Symbol,
		record.Volume,
		record.Price,
		record.Cost,
		record.TotalShares,
		record.AveragePrice,
	); err != nil && w.log != nil {
		w.log.Warn("journal buy insert failed", zap.Error(err))
	}
}

func (w *Writer) writeSell(ctx context.Context, record strategy.SellRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, volume, price, closed
	) VALUES ($1,$2,$3,$4,$5)`, w.table("liquidation_orders"))
	if _, err := w.db.ExecContext(ctx, query,
		record.Time,
		record.Symbol,
		record.Volume,
		record.Price,
		record.Closed,
	); err != nil && w.log != nil {
		w.log.Warn("journal sell insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
