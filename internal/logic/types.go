// Package logic contains pure policy for the GPIO monitor and presence daemons.
// This package has NO external dependencies (no GPIO, D-Bus, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Edge is the direction of a line level transition.
type Edge string

const (
	EdgeRising  Edge = "RISING"
	EdgeFalling Edge = "FALLING"
)

// Assertion returns the log wording for the edge.
func (e Edge) Assertion() string {
	if e == EdgeRising {
		return "Asserted"
	}
	return "Deasserted"
}

// State is the dispatch state of a monitored line.
type State string

const (
	StateIdle        State = "IDLE"
	StateDispatching State = "DISPATCHING"
	StateTerminated  State = "TERMINATED"
)

// Polarity selects which edge means "present" for a presence line.
type Polarity string

const (
	// PolarityRising means a rising edge (high level) marks the item present.
	PolarityRising Polarity = "rising"
	// PolarityFalling means a falling edge (low level) marks the item present.
	PolarityFalling Polarity = "falling"
)

// ParsePolarity validates a polarity option value.
func ParsePolarity(s string) (Polarity, error) {
	switch Polarity(s) {
	case PolarityRising, PolarityFalling:
		return Polarity(s), nil
	case "":
		return PolarityRising, nil
	}
	return "", fmt.Errorf("polarity %q: must be rising or falling", s)
}

// EventType identifies an observable outcome of the policy.
type EventType string

const (
	EventAsserted   EventType = "ASSERTED"
	EventDeasserted EventType = "DEASSERTED"
	EventPresent    EventType = "PRESENT"
	EventAbsent     EventType = "ABSENT"
)

// Event is emitted to mirrors (MQTT, status tracker) after the policy ran.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Line      string
	// Unit is the systemd unit started for this edge, if any.
	Unit string
	// Present and Inventory are only meaningful for presence events.
	Present   bool
	Inventory string
}

// EventCounts tracks the number of each outcome since startup.
type EventCounts struct {
	Asserted     int
	Deasserted   int
	UnitStarts   int
	Publications int
}

// Count adds ev to the counts.
func (c *EventCounts) Count(ev Event) {
	switch ev.Type {
	case EventAsserted:
		c.Asserted++
	case EventDeasserted:
		c.Deasserted++
	case EventPresent, EventAbsent:
		c.Publications++
	}
	if ev.Unit != "" {
		c.UnitStarts++
	}
}

// PresenceState is the last published presence of an inventory item.
type PresenceState struct {
	Present   bool
	Inventory string
	Name      string
}

// Apply stores present and reports whether it differs from the previous value.
func (s *PresenceState) Apply(present bool) bool {
	if s.Present == present {
		return false
	}
	s.Present = present
	return true
}

// PresenceEvent builds the mirror event for the current state.
func (s PresenceState) PresenceEvent(line string, now time.Time) Event {
	t := EventAbsent
	if s.Present {
		t = EventPresent
	}
	return Event{
		Timestamp: now,
		Type:      t,
		Line:      line,
		Present:   s.Present,
		Inventory: s.Inventory,
	}
}
