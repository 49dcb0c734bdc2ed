package gpio

import (
	"log/slog"
	"sync"
	"time"
)

// Raw record kinds. These match the kernel event types reported by gpiocdev.
const (
	kindRising  = 1
	kindFalling = 2
)

// record is an undecoded event as delivered by the kernel.
type record struct {
	kind      int
	timestamp time.Duration
	offset    int
	seqno     uint32
}

// eventQueue is a fixed-capacity FIFO of pending records with a level-triggered
// readiness channel: ready holds a token whenever at least one record is queued.
// Safe for concurrent push (kernel watcher) and pop (reactor).
type eventQueue struct {
	mu       sync.Mutex
	buf      []record
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any record was dropped since the queue last emptied
	dropped  int
	closed   bool
	ready    chan struct{}
	logger   *slog.Logger
}

func newEventQueue(capacity int, logger *slog.Logger) *eventQueue {
	if capacity <= 0 {
		capacity = DefaultEventBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &eventQueue{
		buf:      make([]record, capacity),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		logger:   logger,
	}
}

func (q *eventQueue) push(r record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if q.count == q.capacity {
		if !q.overflow {
			q.logger.Warn("event buffer full, dropping oldest", "capacity", q.capacity)
			q.overflow = true
		}
		q.dropped++
		// Overwrite oldest: head is already pointing at it
		q.buf[q.head] = r
		q.head = (q.head + 1) % q.capacity
		q.signal()
		return
	}
	q.buf[q.head] = r
	q.head = (q.head + 1) % q.capacity
	q.count++
	q.signal()
}

// pop removes the oldest record. The readiness token is restored if more remain.
func (q *eventQueue) pop() (record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return record{}, ErrClosed
	}
	if q.count == 0 {
		return record{}, ErrNoEvent
	}
	// Oldest item is at (head - count) mod capacity
	start := (q.head - q.count + q.capacity) % q.capacity
	r := q.buf[start]
	q.count--
	if q.count == 0 {
		q.overflow = false
	} else {
		q.signal()
	}
	return r, nil
}

// wake posts a readiness token without a record.
func (q *eventQueue) wake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.signal()
	}
}

// signal must be called with mu held on an open queue.
func (q *eventQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *eventQueue) droppedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
