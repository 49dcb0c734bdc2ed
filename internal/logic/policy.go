package logic

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned when dispatch is attempted after the line stopped.
var ErrTerminated = errors.New("monitoring terminated")

// EdgeForValue maps a key value to the edge that produces it.
// 1 is a press (rising), 0 a release (falling).
func EdgeForValue(value int) (Edge, error) {
	switch value {
	case 1:
		return EdgeRising, nil
	case 0:
		return EdgeFalling, nil
	}
	return "", fmt.Errorf("value %d: must be 0 or 1", value)
}

// MatchEdge reports whether edge produces the target key value.
func MatchEdge(edge Edge, value int) bool {
	want, err := EdgeForValue(value)
	return err == nil && edge == want
}

// PresentFromLevel derives presence from an instantaneous line level.
func PresentFromLevel(level int, p Polarity) bool {
	if p == PolarityFalling {
		return level == 0
	}
	return level != 0
}

// PresentFromEdge derives presence from the edge that just occurred.
func PresentFromEdge(edge Edge, p Polarity) bool {
	if p == PolarityFalling {
		return edge == EdgeFalling
	}
	return edge == EdgeRising
}

// Machine tracks Idle -> Dispatching -> Idle|Terminated for one line.
// The zero value is Idle.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State {
	if m.state == "" {
		return StateIdle
	}
	return m.state
}

// Begin enters Dispatching. It fails once the machine is Terminated.
func (m *Machine) Begin() error {
	switch m.State() {
	case StateTerminated:
		return ErrTerminated
	case StateDispatching:
		return errors.New("dispatch already in progress")
	}
	m.state = StateDispatching
	return nil
}

// Finish leaves Dispatching: back to Idle when the wait is re-armed,
// Terminated otherwise.
func (m *Machine) Finish(rearm bool) {
	if m.State() == StateTerminated {
		return
	}
	if rearm {
		m.state = StateIdle
		return
	}
	m.state = StateTerminated
}

// Terminate moves to Terminated from any state.
func (m *Machine) Terminate() {
	m.state = StateTerminated
}
