package store

import (
	"sort"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

// ChangeBufferSize is the capacity of the EpochChange channel.
const ChangeBufferSize = 64

// DefaultGracePeriod is how long a retired epoch is kept referenced for
// in-flight readers before the store drops its reference.
const DefaultGracePeriod = 30 * time.Second

// Key identifies one tracked (underlying, expiration) pair.
type Key struct {
	Underlying string
	Expiration string
}

// Meta is the strike-window context an epoch was fetched under. It rides
// along so the snapshot publisher can serialize it without re-deriving spot.
type Meta struct {
	ATM         int // at-the-money strike, whole points
	RangePoints int // half-width of the tracked strike window, points
	Spot        float64
}

// EpochChange announces that a new epoch replaced the current one for a key.
// The hydrator watches these to retarget the trade stream's subscriptions.
type EpochChange struct {
	Key     Key
	EpochID int64
	Symbols []string
}

// Store owns the current epoch per tracked pair. All workers share one Store
// handle; nothing else in the core is shared mutable state.
type Store struct {
	grace time.Duration

	mu      sync.RWMutex
	current map[Key]*Epoch
	retired []retiredEpoch
	nextID  int64

	changes chan EpochChange
}

type retiredEpoch struct {
	epoch     *Epoch
	retiredAt time.Time
}

// New creates an empty store. grace <= 0 selects DefaultGracePeriod.
func New(grace time.Duration) *Store {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Store{
		grace:   grace,
		current: make(map[Key]*Epoch),
		changes: make(chan EpochChange, ChangeBufferSize),
	}
}

// CreateEpoch builds a new epoch from a full chain fetch and atomically
// replaces any existing epoch for the key. The old epoch is marked retired
// so late writers see EpochRetired, and is kept referenced for the grace
// period so in-flight captures complete against a still-valid object.
func (s *Store) CreateEpoch(underlying, expiration string, meta Meta, seeds []model.ContractSeed) *Epoch {
	key := Key{Underlying: underlying, Expiration: expiration}

	s.mu.Lock()
	s.nextID++
	e := newEpoch(s.nextID, underlying, expiration, meta, seeds)

	if old, ok := s.current[key]; ok {
		old.retired.Store(true)
		s.retired = append(s.retired, retiredEpoch{epoch: old, retiredAt: time.Now()})
	}
	s.current[key] = e
	s.pruneRetiredLocked()
	s.mu.Unlock()

	s.notifyChange(EpochChange{Key: key, EpochID: e.id, Symbols: e.Symbols()})
	return e
}

// Current returns the live epoch for a key, if any.
func (s *Store) Current(underlying, expiration string) (*Epoch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.current[Key{Underlying: underlying, Expiration: expiration}]
	return e, ok
}

// Keys returns all tracked pairs, sorted for deterministic iteration.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.current))
	for k := range s.current {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Underlying != keys[j].Underlying {
			return keys[i].Underlying < keys[j].Underlying
		}
		return keys[i].Expiration < keys[j].Expiration
	})
	return keys
}

// ActiveSymbols returns every contract symbol across all current epochs,
// sorted. This is the targeted-mode subscription set.
func (s *Store) ActiveSymbols() []string {
	s.mu.RLock()
	epochs := make([]*Epoch, 0, len(s.current))
	for _, e := range s.current {
		epochs = append(epochs, e)
	}
	s.mu.RUnlock()

	var out []string
	for _, e := range epochs {
		out = append(out, e.Symbols()...)
	}
	sort.Strings(out)
	return out
}

// Changes returns the epoch replacement notification channel.
func (s *Store) Changes() <-chan EpochChange {
	return s.changes
}

// RetiredCount returns how many superseded epochs are still within their
// grace period.
func (s *Store) RetiredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.retired)
}

// pruneRetiredLocked drops references to epochs retired longer ago than the
// grace period. Caller must hold the write lock.
func (s *Store) pruneRetiredLocked() {
	cutoff := time.Now().Add(-s.grace)
	kept := s.retired[:0]
	for _, r := range s.retired {
		if r.retiredAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.retired); i++ {
		s.retired[i] = retiredEpoch{}
	}
	s.retired = kept
}

// notifyChange sends a change non-blocking; when the channel is full the
// oldest pending change is dropped in favor of the new one.
func (s *Store) notifyChange(change EpochChange) {
	select {
	case s.changes <- change:
	default:
		select {
		case <-s.changes:
			s.changes <- change
		default:
		}
	}
}
