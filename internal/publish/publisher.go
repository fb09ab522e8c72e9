package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/model"
	"github.com/strikefeed/strikefeed/internal/store"
)

// Errors surfaced to consumers.
var (
	// ErrSnapshotExpired means the latest pointer or its snapshot has lapsed
	// past its TTL. A staleness signal, not a crash: consumers decide
	// whether to render last-known-good data.
	ErrSnapshotExpired = errors.New("snapshot expired")

	// ErrPointerMismatch means a pointer resolved to a snapshot for a
	// different pair, which indicates store corruption.
	ErrPointerMismatch = errors.New("pointer resolved to wrong pair")
)

// DefaultTTL is the default snapshot and pointer lifetime.
const DefaultTTL = 60 * time.Second

// Recorder observes successful snapshot publications. Implementations must
// not block.
type Recorder interface {
	RecordSnapshot(key string, snap model.Snapshot)
}

// Publisher serializes epochs into immutable snapshot blobs.
type Publisher struct {
	kv       KV
	ttl      time.Duration
	logger   *slog.Logger
	recorder Recorder // may be nil
}

// New creates a publisher. ttl <= 0 selects DefaultTTL.
func New(kv KV, ttl time.Duration, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Publisher{kv: kv, ttl: ttl, logger: logger}
}

// TTL returns the configured snapshot lifetime.
func (p *Publisher) TTL() time.Duration { return p.ttl }

// SetRecorder attaches a publication observer. Call before Start wiring;
// not safe to swap while publishes are in flight.
func (p *Publisher) SetRecorder(r Recorder) { p.recorder = r }

// PublishEpoch captures a consistent view of the epoch, writes it as an
// immutable snapshot, then swaps the latest pointer. On any failure the
// previous pointer is left intact.
func (p *Publisher) PublishEpoch(ctx context.Context, e *store.Epoch) (string, error) {
	recs, version := e.Capture()
	now := time.Now()
	meta := e.Meta()

	snap := model.Snapshot{
		TS:          float64(now.UnixMicro()) / 1e6,
		Underlying:  e.Underlying(),
		Expiration:  e.Expiration(),
		ATM:         meta.ATM,
		RangePoints: meta.RangePoints,
		Contracts:   make([]model.ContractState, 0, len(recs)),
	}
	for _, r := range recs {
		snap.Contracts = append(snap.Contracts, model.ContractState{
			Symbol:       r.Symbol,
			Strike:       r.Strike,
			Right:        string(r.Right),
			Bid:          r.Bid,
			Ask:          r.Ask,
			Mid:          r.Mid(),
			Last:         r.Last,
			Size:         r.Size,
			OpenInterest: r.OpenInterest,
			UpdatedTS:    r.UpdatedTS,
		})
	}

	// Wire order is part of the contract: by strike, calls before puts,
	// regardless of the order the chain source returned.
	sort.Slice(snap.Contracts, func(i, j int) bool {
		if snap.Contracts[i].Strike != snap.Contracts[j].Strike {
			return snap.Contracts[i].Strike < snap.Contracts[j].Strike
		}
		return snap.Contracts[i].Right < snap.Contracts[j].Right
	})

	blob, err := json.Marshal(snap)
	if err != nil {
		metrics.PublishFailures.Inc()
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := model.SnapshotKey(e.Underlying(), e.Expiration(), now.UnixMilli())
	if err := p.kv.Set(ctx, key, blob, p.ttl); err != nil {
		metrics.PublishFailures.Inc()
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	pointer := model.LatestKey(e.Underlying(), e.Expiration())
	if err := p.kv.Set(ctx, pointer, []byte(key), p.ttl); err != nil {
		metrics.PublishFailures.Inc()
		return "", fmt.Errorf("swap pointer: %w", err)
	}

	metrics.SnapshotsPublished.Inc()
	if p.recorder != nil {
		p.recorder.RecordSnapshot(key, snap)
	}
	p.logger.Debug("snapshot published",
		"key", key,
		"contracts", len(snap.Contracts),
		"epoch_version", version,
	)
	return key, nil
}

// PublishModel writes a derived model artifact under its model key.
func (p *Publisher) PublishModel(ctx context.Context, profile model.GammaProfile) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	key := model.ModelKey("gex", profile.Underlying, profile.Expiration)
	if err := p.kv.Set(ctx, key, blob, p.ttl); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Resolve fetches the current snapshot for a pair through the latest
// pointer. This is the only sanctioned read path; snapshot keys are opaque.
func Resolve(ctx context.Context, kv KV, underlying, expiration string) (model.Snapshot, error) {
	pointer, err := kv.Get(ctx, model.LatestKey(underlying, expiration))
	if err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return model.Snapshot{}, ErrSnapshotExpired
		}
		return model.Snapshot{}, fmt.Errorf("read pointer: %w", err)
	}

	blob, err := kv.Get(ctx, string(pointer))
	if err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return model.Snapshot{}, ErrSnapshotExpired
		}
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Underlying != underlying || snap.Expiration != expiration {
		return model.Snapshot{}, ErrPointerMismatch
	}
	return snap, nil
}
