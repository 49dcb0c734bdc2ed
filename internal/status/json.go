package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Daemon        string        `json:"daemon"`
	Line          string        `json:"line"`
	State         string        `json:"state"`
	LastEvent     string        `json:"last_event,omitempty"`
	LastEventTime string        `json:"last_event_time,omitempty"`
	Presence      *PresenceJSON `json:"presence,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"event_counts"`
	Config        ConfigJSON    `json:"config"`
}

// PresenceJSON reports the last published presence.
type PresenceJSON struct {
	Present   bool   `json:"present"`
	Inventory string `json:"inventory"`
	Name      string `json:"name,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Asserted     int `json:"asserted"`
	Deasserted   int `json:"deasserted"`
	UnitStarts   int `json:"unit_starts"`
	Publications int `json:"publications"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Path      string `json:"path"`
	Offset    int    `json:"offset"`
	Broker    string `json:"broker"`
	HTTPAddr  string `json:"http_addr"`
	Value     *int   `json:"value,omitempty"`
	Target    string `json:"target,omitempty"`
	Continue  bool   `json:"continue,omitempty"`
	Inventory string `json:"inventory,omitempty"`
	Polarity  string `json:"polarity,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		Daemon:        snap.Config.Daemon,
		Line:          snap.Line,
		State:         state,
		LastEvent:     string(snap.LastEvent),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Asserted:     snap.Counts.Asserted,
			Deasserted:   snap.Counts.Deasserted,
			UnitStarts:   snap.Counts.UnitStarts,
			Publications: snap.Counts.Publications,
		},
		Config: ConfigJSON{
			Path:      snap.Config.Path,
			Offset:    snap.Config.Offset,
			Broker:    snap.Config.Broker,
			HTTPAddr:  snap.Config.HTTPAddr,
			Target:    snap.Config.Target,
			Continue:  snap.Config.Continue,
			Inventory: snap.Config.Inventory,
			Polarity:  string(snap.Config.Polarity),
		},
	}
	if !snap.LastEventTime.IsZero() {
		inner.LastEventTime = snap.LastEventTime.UTC().Format(time.RFC3339)
	}
	if snap.Config.Inventory == "" {
		value := snap.Config.Value
		inner.Config.Value = &value
	}
	if snap.Presence != nil {
		inner.Presence = &PresenceJSON{
			Present:   snap.Presence.Present,
			Inventory: snap.Presence.Inventory,
			Name:      snap.Presence.Name,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
