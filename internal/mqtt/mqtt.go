// Package mqtt mirrors line events to an MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// TopicPrefix is the root of every topic published by the daemons.
const TopicPrefix = "bmc/gpio"

// Topics are the per-line topics.
type Topics struct {
	// Events carries every edge, QoS 0, not retained.
	Events string
	// Presence carries the latest presence state, retained.
	Presence string
	// System carries lifecycle events (STARTUP, SHUTDOWN, OFFLINE).
	System string
}

// TopicsFor returns the topics for a line label. Characters that are
// special in MQTT topic names are replaced.
func TopicsFor(label string) Topics {
	base := TopicPrefix + "/" + topicSegment(label)
	return Topics{
		Events:   base + "/events",
		Presence: base + "/presence",
		System:   base + "/system",
	}
}

func topicSegment(label string) string {
	label = strings.Trim(label, "/")
	if label == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, label)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a line event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	GPIO LinePayload `json:"gpio"`
}

// LinePayload contains the line event details.
type LinePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Line      string `json:"line"`
	Unit      string `json:"unit,omitempty"`
	Inventory string `json:"inventory,omitempty"`
	Present   *bool  `json:"present,omitempty"`
}

// IsPresence reports whether event belongs on the presence topic.
func IsPresence(event logic.Event) bool {
	return event.Type == logic.EventPresent || event.Type == logic.EventAbsent
}

// Route picks the topic, QoS and retained flag for a line event.
// Presence is retained at QoS 1 so a late subscriber sees the current
// state; edges are QoS 0 and never replayed.
func (t Topics) Route(event logic.Event) (topic string, qos byte, retained bool) {
	if IsPresence(event) {
		return t.Presence, 1, true
	}
	return t.Events, 0, false
}

// FormatPayload creates the JSON payload for a line event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		GPIO: LinePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Line:      event.Line,
			Unit:      event.Unit,
		},
	}
	if IsPresence(event) {
		present := event.Present
		payload.GPIO.Present = &present
		payload.GPIO.Inventory = event.Inventory
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events
// that don't carry a full status snapshot (LWT).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
