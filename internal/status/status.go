// Package status provides a thread-safe status tracker for the GPIO daemons.
// It is written from the reactor goroutine and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Daemon   string // "gpio-monitor" or "gpio-presence"
	Path     string
	Offset   int
	Broker   string
	HTTPAddr string

	// gpio-monitor
	Value    int
	Target   string
	Continue bool

	// gpio-presence
	Inventory string
	Polarity  logic.Polarity
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Line          string
	State         logic.State
	LastEvent     logic.EventType
	LastEventTime time.Time
	// Presence is nil for the generic monitor.
	Presence      *logic.PresenceState
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for line with the given start time and config.
func NewTracker(line string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Line:      line,
			State:     logic.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetState records the dispatch state of the line.
func (t *Tracker) SetState(s logic.State) {
	t.mu.Lock()
	t.snap.State = s
	t.mu.Unlock()
}

// Publish records an event. It implements the same sink contract as the
// MQTT publisher so the monitor can treat both alike; it never fails.
func (t *Tracker) Publish(ev logic.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Counts.Count(ev)
	t.snap.LastEvent = ev.Type
	t.snap.LastEventTime = ev.Timestamp
	if ev.Type == logic.EventPresent || ev.Type == logic.EventAbsent {
		p := logic.PresenceState{Present: ev.Present, Inventory: ev.Inventory}
		if t.snap.Presence != nil {
			p.Name = t.snap.Presence.Name
		}
		t.snap.Presence = &p
	}
	return nil
}

// SetPrettyName records the inventory item name shown with presence state.
func (t *Tracker) SetPrettyName(name string) {
	t.mu.Lock()
	if t.snap.Presence == nil {
		t.snap.Presence = &logic.PresenceState{Inventory: t.snap.Config.Inventory}
	}
	t.snap.Presence.Name = name
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Presence != nil {
		p := *s.Presence
		s.Presence = &p
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
