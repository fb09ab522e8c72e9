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

// SnapshotWriter archives snapshot publication metadata, giving the
// published-state history a durable index long after the blobs' TTLs lapse.
// Satisfies the publisher's recorder contract.
type SnapshotWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *stream.Ring[snapshotRow]
	db    *pgxpool.Pool

	batch       []snapshotRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

type snapshotRow struct {
	Key         string
	Underlying  string
	Expiration  string
	CapturedTS  int64 // µs since epoch
	ATM         int
	RangePoints int
	Contracts   int
}

// NewSnapshotWriter creates a snapshot metadata writer.
func NewSnapshotWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *SnapshotWriter {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{
		cfg:    cfg,
		logger: logger,
		input:  stream.NewRing[snapshotRow](cfg.BufferSize),
		db:     db,
		batch:  make([]snapshotRow, 0, cfg.BatchSize),
	}
}

// RecordSnapshot enqueues metadata for one published snapshot. Never blocks.
func (w *SnapshotWriter) RecordSnapshot(key string, snap model.Snapshot) {
	w.input.Send(snapshotRow{
		Key:         key,
		Underlying:  snap.Underlying,
		Expiration:  snap.Expiration,
		CapturedTS:  int64(snap.TS * 1e6),
		ATM:         snap.ATM,
		RangePoints: snap.RangePoints,
		Contracts:   len(snap.Contracts),
	})
}

// Start begins consuming records and writing batches.
func (w *SnapshotWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("snapshot archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *SnapshotWriter) Stop(ctx context.Context) error {
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
		w.logger.Info("snapshot archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("snapshot archive writer stop timed out")
	}

	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *SnapshotWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *SnapshotWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			row, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.batchMu.Lock()
			w.batch = append(w.batch, row)
			shouldFlush := len(w.batch) >= w.cfg.BatchSize
			w.batchMu.Unlock()

			if shouldFlush {
				w.flush()
			}
		}
	}
}

func (w *SnapshotWriter) flushLoop() {
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

func (w *SnapshotWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("snapshot batch insert failed", "error", err, "count", len(batch))
		metrics.ArchiveErrors.WithLabelValues("snapshots").Inc()
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	metrics.ArchiveInserts.WithLabelValues("snapshots").Add(float64(len(batch) - conflicts))
	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()
}

func (w *SnapshotWriter) batchInsert(rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO snapshots (key, underlying, expiration, captured_ts, atm, range_points, contracts)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (key) DO NOTHING
		`, r.Key, r.Underlying, r.Expiration, r.CapturedTS, r.ATM, r.RangePoints, r.Contracts)
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
