package gpio

import (
	"time"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// FakeLine is a test double that delivers scripted edge records.
type FakeLine struct {
	// Level is returned by Value. It follows an injected edge once
	// ReadEvent has consumed it, as the hardware level would.
	Level int

	// ValueError, if set, will be returned by Value().
	ValueError error

	// ReadError, if set, is returned by the next ReadEvent() instead of a record.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	// Reads counts ReadEvent calls.
	Reads int

	queue *eventQueue
	seqno uint32
}

// NewFakeLine creates a FakeLine whose current level is level.
func NewFakeLine(level int) *FakeLine {
	return &FakeLine{
		Level: level,
		queue: newEventQueue(DefaultEventBufferSize, nil),
	}
}

// Inject queues an edge record. Level is unchanged until the record is read.
func (f *FakeLine) Inject(edge logic.Edge) {
	kind := kindFalling
	if edge == logic.EdgeRising {
		kind = kindRising
	}
	f.InjectRaw(kind)
}

// InjectRaw queues a record with an arbitrary kernel event type.
func (f *FakeLine) InjectRaw(kind int) {
	f.seqno++
	f.queue.push(record{
		kind:      kind,
		timestamp: time.Duration(f.seqno) * time.Millisecond,
		seqno:     f.seqno,
	})
}

// Wake posts a readiness notification with no record behind it.
func (f *FakeLine) Wake() {
	f.queue.wake()
}

// Pending returns the number of queued records.
func (f *FakeLine) Pending() int {
	return f.queue.len()
}

// Ready delivers a notification while records are pending.
func (f *FakeLine) Ready() <-chan struct{} {
	return f.queue.ready
}

// ReadEvent decodes the oldest queued record and moves Level to match it.
func (f *FakeLine) ReadEvent() (EdgeEvent, error) {
	f.Reads++
	if f.ReadError != nil {
		err := f.ReadError
		f.ReadError = nil
		return EdgeEvent{}, err
	}
	ev, err := readEvent(f.queue)
	if err != nil {
		return ev, err
	}
	f.Level = 0
	if ev.Edge == logic.EdgeRising {
		f.Level = 1
	}
	return ev, nil
}

// Value returns Level.
func (f *FakeLine) Value() (int, error) {
	if f.ValueError != nil {
		return 0, f.ValueError
	}
	if f.Closed {
		return 0, ErrClosed
	}
	return f.Level, nil
}

// Close marks the line closed and closes its readiness channel.
func (f *FakeLine) Close() error {
	f.Closed = true
	f.queue.close()
	return nil
}
