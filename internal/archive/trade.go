package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/model"
	"github.com/strikefeed/strikefeed/internal/stream"
)

// TradeWriter archives accepted hydration updates to the option_trades
// table. It satisfies the hydrator's sink contract: ArchiveTrade never
// blocks, trading completeness for hot-path latency via a drop-oldest
// input ring.
type TradeWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *stream.Ring[model.TradeEvent]
	db    *pgxpool.Pool

	batch       []tradeRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

type tradeRow struct {
	Symbol     string
	Price      float64
	Size       int64
	EventTS    int64 // µs since epoch
	ReceivedAt int64 // µs since epoch
}

// NewTradeWriter creates a trade archive writer.
func NewTradeWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *TradeWriter {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeWriter{
		cfg:    cfg,
		logger: logger,
		input:  stream.NewRing[model.TradeEvent](cfg.BufferSize),
		db:     db,
		batch:  make([]tradeRow, 0, cfg.BatchSize),
	}
}

// ArchiveTrade enqueues one accepted event. Never blocks; under sustained
// database slowness the oldest queued events are dropped.
func (w *TradeWriter) ArchiveTrade(ev model.TradeEvent) {
	w.input.Send(ev)
}

// Start begins consuming events and writing batches.
func (w *TradeWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("trade archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *TradeWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping trade archive writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("trade archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("trade archive writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *TradeWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *TradeWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			ev, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleEvent(ev)
		}
	}
}

func (w *TradeWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *TradeWriter) handleEvent(ev model.TradeEvent) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

func (w *TradeWriter) transform(ev model.TradeEvent) tradeRow {
	return tradeRow{
		Symbol:     ev.Symbol,
		Price:      ev.Price,
		Size:       ev.Size,
		EventTS:    ev.EventTS,
		ReceivedAt: time.Now().UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *TradeWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]tradeRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("trade batch insert failed", "error", err, "count", len(batch))
		metrics.ArchiveErrors.WithLabelValues("option_trades").Inc()
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	metrics.ArchiveInserts.WithLabelValues("option_trades").Add(float64(len(batch) - conflicts))
	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed trades",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch. Duplicate prints from feed
// reconnects land on the conflict target and are ignored.
func (w *TradeWriter) batchInsert(rows []tradeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO option_trades (symbol, price, size, event_ts, received_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol, event_ts, price, size) DO NOTHING
		`, r.Symbol, r.Price, r.Size, r.EventTS, r.ReceivedAt)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
