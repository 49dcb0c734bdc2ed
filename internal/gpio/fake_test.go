package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

func TestFakeLineInjectAndRead(t *testing.T) {
	f := NewFakeLine(0)

	f.Inject(logic.EdgeRising)
	f.Inject(logic.EdgeFalling)

	if f.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", f.Pending())
	}

	ev, err := f.ReadEvent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Edge != logic.EdgeRising {
		t.Errorf("event 0: expected RISING, got %s", ev.Edge)
	}

	ev, err = f.ReadEvent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Edge != logic.EdgeFalling {
		t.Errorf("event 1: expected FALLING, got %s", ev.Edge)
	}
	if ev.Seqno != 2 {
		t.Errorf("expected seqno 2, got %d", ev.Seqno)
	}

	if _, err := f.ReadEvent(); !errors.Is(err, ErrNoEvent) {
		t.Errorf("expected ErrNoEvent, got %v", err)
	}
	if f.Reads != 3 {
		t.Errorf("expected 3 reads, got %d", f.Reads)
	}
}

func TestFakeLineLevelFollowsConsumedEdges(t *testing.T) {
	f := NewFakeLine(0)

	f.Inject(logic.EdgeRising)
	if v, _ := f.Value(); v != 0 {
		t.Errorf("queued rising edge: expected level 0 until read, got %d", v)
	}
	if _, err := f.ReadEvent(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := f.Value(); v != 1 {
		t.Errorf("after reading rising: expected level 1, got %d", v)
	}

	f.Inject(logic.EdgeFalling)
	if v, _ := f.Value(); v != 1 {
		t.Errorf("queued falling edge: expected level 1 until read, got %d", v)
	}
	if _, err := f.ReadEvent(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := f.Value(); v != 0 {
		t.Errorf("after reading falling: expected level 0, got %d", v)
	}
}

func TestFakeLineUnknownRecordKeepsLevel(t *testing.T) {
	f := NewFakeLine(1)
	f.InjectRaw(42)
	f.ReadEvent()
	if v, _ := f.Value(); v != 1 {
		t.Errorf("expected level 1 after undecodable record, got %d", v)
	}
}

func TestFakeLineReadError(t *testing.T) {
	f := NewFakeLine(0)
	f.Inject(logic.EdgeRising)
	f.ReadError = errors.New("simulated error")

	if _, err := f.ReadEvent(); err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}

	// The error is consumed; the queued record is still there.
	if ev, err := f.ReadEvent(); err != nil || ev.Edge != logic.EdgeRising {
		t.Errorf("expected queued rising edge, got (%v, %v)", ev, err)
	}
}

func TestFakeLineValueError(t *testing.T) {
	f := NewFakeLine(1)
	f.ValueError = errors.New("simulated error")

	if _, err := f.Value(); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestFakeLineClose(t *testing.T) {
	f := NewFakeLine(0)

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	if _, ok := <-f.Ready(); ok {
		t.Error("expected Ready channel to be closed")
	}
	if _, err := f.ReadEvent(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := f.Value(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Value, got %v", err)
	}
}

func TestFakeLineUnknownRecord(t *testing.T) {
	f := NewFakeLine(0)
	f.InjectRaw(42)

	if _, err := f.ReadEvent(); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}
