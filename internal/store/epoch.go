package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

// ApplyResult classifies the outcome of a hydration write.
type ApplyResult int

const (
	// Applied means the record existed and the event was at least as new as
	// the stored state; quote fields were updated and the version advanced.
	Applied ApplyResult = iota

	// UnknownSymbol means the symbol is not in this epoch's contract set.
	UnknownSymbol

	// StaleEvent means the event timestamp is older than the stored state.
	StaleEvent

	// EpochRetired means this epoch was superseded before the write landed.
	EpochRetired
)

func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case UnknownSymbol:
		return "unknown_symbol"
	case StaleEvent:
		return "stale_event"
	case EpochRetired:
		return "epoch_retired"
	default:
		return "unknown"
	}
}

// Epoch is a versioned set of contract records for one (underlying,
// expiration) pair. The contract set is fixed at creation; only quote
// fields within records change, under the epoch lock.
type Epoch struct {
	id         int64
	underlying string
	expiration string
	meta       Meta
	createdAt  time.Time

	mu        sync.RWMutex
	contracts map[string]*model.ContractRecord
	symbols   []string // creation order, preserved in captures
	version   int64    // guarded by mu, bumped on every accepted write

	retired atomic.Bool
}

func newEpoch(id int64, underlying, expiration string, meta Meta, seeds []model.ContractSeed) *Epoch {
	e := &Epoch{
		id:         id,
		underlying: underlying,
		expiration: expiration,
		meta:       meta,
		createdAt:  time.Now(),
		contracts:  make(map[string]*model.ContractRecord, len(seeds)),
		symbols:    make([]string, 0, len(seeds)),
	}
	for _, s := range seeds {
		if _, dup := e.contracts[s.Symbol]; dup {
			continue
		}
		e.contracts[s.Symbol] = &model.ContractRecord{
			Symbol:       s.Symbol,
			Underlying:   s.Underlying,
			Expiration:   s.Expiration,
			Strike:       s.Strike,
			Right:        s.Right,
			Bid:          s.Bid,
			Ask:          s.Ask,
			Last:         s.Last,
			Size:         s.Size,
			OpenInterest: s.OpenInterest,
			UpdatedTS:    s.UpdatedTS,
		}
		e.symbols = append(e.symbols, s.Symbol)
	}
	return e
}

// ID returns the epoch's monotonically increasing identifier.
func (e *Epoch) ID() int64 { return e.id }

// Underlying returns the underlying ticker this epoch tracks.
func (e *Epoch) Underlying() string { return e.underlying }

// Expiration returns the expiration date this epoch tracks.
func (e *Epoch) Expiration() string { return e.expiration }

// CreatedAt returns the epoch creation time.
func (e *Epoch) CreatedAt() time.Time { return e.createdAt }

// Meta returns the strike-window metadata captured at creation.
func (e *Epoch) Meta() Meta { return e.meta }

// Retired reports whether this epoch has been superseded.
func (e *Epoch) Retired() bool { return e.retired.Load() }

// Len returns the number of contracts in the epoch.
func (e *Epoch) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.contracts)
}

// Version returns the current version counter.
func (e *Epoch) Version() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Contains reports whether the symbol is part of this epoch's contract set.
func (e *Epoch) Contains(symbol string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.contracts[symbol]
	return ok
}

// Symbols returns the epoch's contract symbols in creation order.
func (e *Epoch) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Apply merges one trade event into an existing record. Acceptance is gated
// purely by the event timestamp versus the stored timestamp, which makes the
// merge idempotent: duplicates and reordered arrivals converge to the state
// of the newest accepted event.
func (e *Epoch) Apply(symbol string, price float64, size int64, eventTS int64) ApplyResult {
	if e.retired.Load() {
		return EpochRetired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-check under the lock: a swap may have retired this epoch between
	// the fast-path check and lock acquisition. CreateEpoch marks the old
	// epoch retired before publishing its replacement, so a write that gets
	// past this point landed before the swap.
	if e.retired.Load() {
		return EpochRetired
	}

	rec, ok := e.contracts[symbol]
	if !ok {
		return UnknownSymbol
	}
	if eventTS < rec.UpdatedTS {
		return StaleEvent
	}

	rec.Last = price
	rec.Size = size
	rec.UpdatedTS = eventTS
	e.version++

	return Applied
}

// Capture returns a consistent copy of the contract set in creation order,
// together with the version it reflects. The copy is taken under a single
// read lock, so it never straddles two concurrent writes.
func (e *Epoch) Capture() ([]model.ContractRecord, int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.ContractRecord, 0, len(e.symbols))
	for _, sym := range e.symbols {
		out = append(out, *e.contracts[sym])
	}
	return out, e.version
}
