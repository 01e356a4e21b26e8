// Package ring provides a bounded lock-free queue for handing values between
// a realtime callback and ordinary goroutines.
//
// Offer and Poll never block, never allocate and never take a lock, so they
// may be called from an audio callback. Take blocks on a wake-up signal and is
// meant for worker goroutines.
package ring

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Take once the queue is closed and drained.
var ErrClosed = errors.New("ring: queue closed")

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded multi-producer queue with per-slot sequence numbers.
// Values from a single producer are dequeued in the order they were offered.
type Queue[T any] struct {
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte

	mask  uint64
	slots []slot[T]

	wake      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// New returns a queue holding at least capacity values. The capacity is
// rounded up to a power of two, minimum 2.
func New[T any](capacity int) *Queue[T] {
	n := uint64(2)
	for n < uint64(capacity) {
		n <<= 1
	}

	q := &Queue[T]{
		mask:  n - 1,
		slots: make([]slot[T], n),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Offer adds v to the queue. It reports false, leaving the queue unchanged,
// when the queue is full or closed.
func (q *Queue[T]) Offer(v T) bool {
	if q.closed.Load() {
		return false
	}

	pos := q.head.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(pos + 1)
				q.signal()
				return true
			}
			pos = q.head.Load()
		case dif < 0:
			return false
		default:
			pos = q.head.Load()
		}
	}
}

// Poll removes and returns the oldest value. It reports false when the queue
// is empty.
func (q *Queue[T]) Poll() (T, bool) {
	var zero T

	pos := q.tail.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq) - int64(pos+1); {
		case dif == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				v := s.val
				s.val = zero
				s.seq.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.tail.Load()
		case dif < 0:
			return zero, false
		default:
			pos = q.tail.Load()
		}
	}
}

// Take removes and returns the oldest value, waiting until one is offered,
// ctx is done or the queue is closed. Values offered before Close are still
// returned.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	for {
		if v, ok := q.Poll(); ok {
			return v, nil
		}
		if q.closed.Load() {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.wake:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Ready returns a channel that receives a value after an Offer. A receive on
// it doesn't guarantee the value is still there.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.wake
}

// Close stops further Offers and wakes every waiting Take.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
	})
}

// Len is the number of queued values. It is only a snapshot.
func (q *Queue[T]) Len() int {
	head, tail := q.head.Load(), q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap is the number of values the queue can hold.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
