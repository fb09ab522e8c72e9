package stream

import "sync"

// Ring is a thread-safe bounded buffer. When full, Send evicts the oldest
// entry rather than blocking the producer: under burst conditions the feed
// must keep draining the socket, and the evicted events are exactly the ones
// the timestamp gate would reject as stale.
type Ring[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	head   int // read position
	tail   int // write position
	count  int
	closed bool

	// Stats
	totalIn  int64
	totalOut int64
	dropped  int64
}

// NewRing creates a ring with the given fixed capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	r := &Ring[T]{buf: make([]T, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Send adds an item, evicting the oldest entry when full.
// Returns false if the ring is closed.
func (r *Ring[T]) Send(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	if r.count == len(r.buf) {
		// Evict oldest.
		var zero T
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
		r.count--
		r.dropped++
	}

	r.pushLocked(item)
	return true
}

// SendWait adds an item, blocking while the ring is full. In-process stages
// use this so overload backs up into the upstream lossy buffer instead of
// shedding events that already cleared the feed edge.
// Returns false if the ring is closed.
func (r *Ring[T]) SendWait(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.count == len(r.buf) && !r.closed {
		r.cond.Wait()
	}
	if r.closed {
		return false
	}

	r.pushLocked(item)
	return true
}

func (r *Ring[T]) pushLocked(item T) {
	r.buf[r.tail] = item
	r.tail = (r.tail + 1) % len(r.buf)
	r.count++
	r.totalIn++
	r.cond.Broadcast()
}

// Receive removes and returns the oldest item, blocking until one is
// available or the ring is closed and drained.
func (r *Ring[T]) Receive() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.count == 0 && !r.closed {
		r.cond.Wait()
	}

	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.popLocked(), true
}

// TryReceive removes and returns the oldest item without blocking.
func (r *Ring[T]) TryReceive() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.popLocked(), true
}

func (r *Ring[T]) popLocked() T {
	item := r.buf[r.head]
	var zero T
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	r.totalOut++
	r.cond.Broadcast()
	return item
}

// Close closes the ring. Receivers drain remaining items, then get false.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

// IsClosed reports whether the ring has been closed. Buffered items may
// still be receivable.
func (r *Ring[T]) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len returns the current number of buffered items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Stats returns ring statistics.
func (r *Ring[T]) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingStats{
		Count:    r.count,
		Capacity: len(r.buf),
		TotalIn:  r.totalIn,
		TotalOut: r.totalOut,
		Dropped:  r.dropped,
	}
}

// RingStats contains ring statistics.
type RingStats struct {
	Count    int
	Capacity int
	TotalIn  int64
	TotalOut int64
	Dropped  int64
}
