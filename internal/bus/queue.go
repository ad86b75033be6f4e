package bus

import (
	"sync"

	"quoteflow/pkg/exception"

	"github.com/yanun0323/errors"
)

var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = exception.ErrQueueClosed
)

// OverflowPolicy decides what a bounded queue does when it is full.
type OverflowPolicy uint8

const (
	// OverflowDropOldest evicts the head so the newest item is kept.
	OverflowDropOldest OverflowPolicy = iota
	// OverflowDropNewest rejects the incoming item with ErrQueueFull.
	OverflowDropNewest
)

const initialCapacity = 64

// Queue is a FIFO safe for many producers and one consumer. Push never
// blocks: an unbounded queue grows its ring, a bounded one applies its
// OverflowPolicy.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int
	count    int
	capacity int
	policy   OverflowPolicy
	closed   bool

	pushed  uint64
	popped  uint64
	dropped uint64
}

// Stats is a point-in-time view of queue counters.
type Stats struct {
	Len     int
	Pushed  uint64
	Popped  uint64
	Dropped uint64
}

// NewQueue allocates a queue. capacity <= 0 means unbounded.
func NewQueue[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	size := initialCapacity
	if capacity > 0 && capacity < size {
		size = capacity
	}
	return &Queue[T]{
		buf:      make([]T, size),
		capacity: capacity,
		policy:   policy,
	}
}

// Push appends v. It reports ErrQueueClosed after Close and ErrQueueFull
// when a bounded DropNewest queue is full. A DropOldest queue always
// accepts and counts the evicted item as dropped.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if q.capacity > 0 && q.count >= q.capacity {
		q.dropped++
		if q.policy == OverflowDropNewest {
			return ErrQueueFull
		}
		q.popHead()
	}

	if q.count == len(q.buf) {
		q.grow()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
	q.pushed++
	return nil
}

// TryPop removes the head without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	q.popped++
	return q.popHead(), true
}

// Drain removes up to max items (all when max <= 0) present at call time,
// in FIFO order. Items pushed concurrently are left for the next call.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := range result {
		result[i] = q.popHead()
	}
	q.popped += uint64(n)
	return result
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close stops the queue from accepting new items. Queued items remain
// drainable.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:     q.count,
		Pushed:  q.pushed,
		Popped:  q.popped,
		Dropped: q.dropped,
	}
}

// popHead must be called with the lock held and count > 0.
func (q *Queue[T]) popHead() T {
	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v
}

// grow doubles the ring, capped by capacity when bounded.
func (q *Queue[T]) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = initialCapacity
	}
	if q.capacity > 0 && size > q.capacity {
		size = q.capacity
	}

	buf := make([]T, size)
	if q.count > 0 {
		if q.head+q.count <= len(q.buf) {
			copy(buf, q.buf[q.head:q.head+q.count])
		} else {
			n := copy(buf, q.buf[q.head:])
			copy(buf[n:], q.buf[:q.count-n])
		}
	}
	q.buf = buf
	q.head = 0
}
