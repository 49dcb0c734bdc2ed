package bus

import (
	"context"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// FakeUnitStarter records StartUnit calls for test assertions.
type FakeUnitStarter struct {
	// Units contains every unit a start was requested for, in order.
	Units []string

	// Err, if set, is returned by StartUnit after recording the call.
	Err error
}

// StartUnit records the unit.
func (f *FakeUnitStarter) StartUnit(ctx context.Context, unit string) error {
	f.Units = append(f.Units, unit)
	return f.Err
}

// FakeInventory records presence publications.
type FakeInventory struct {
	// States contains every published state, in order.
	States []logic.PresenceState

	// Err, if set, is returned by PublishPresence. Failed calls are still recorded.
	Err error
}

// PublishPresence records the state.
func (f *FakeInventory) PublishPresence(ctx context.Context, state logic.PresenceState) error {
	f.States = append(f.States, state)
	return f.Err
}

// Last returns the most recently published state.
func (f *FakeInventory) Last() (logic.PresenceState, bool) {
	if len(f.States) == 0 {
		return logic.PresenceState{}, false
	}
	return f.States[len(f.States)-1], true
}
