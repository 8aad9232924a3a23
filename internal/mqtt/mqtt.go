// Package mqtt publishes observations and lifecycle events to an MQTT broker,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// Topic is the MQTT topic for observation records.
const Topic = "incubator/observations"

// TopicSystem is the MQTT topic for system lifecycle and fault events.
const TopicSystem = "incubator/system"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventFault       = "FAULT"
	EventLost        = "LOST"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes incubator data to MQTT.
type Publisher interface {
	// PublishObservation sends an observation record to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishObservation(obs logic.Observation) error

	// PublishSystem sends a system lifecycle or fault event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, fault).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "FAULT"
	Reason     string // e.g., "SIGTERM", "persistence" (shutdown and fault only)
	Detail     string // human-readable fault detail
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for an observation.
type Payload struct {
	Observation ObservationPayload `json:"observation"`
}

// ObservationPayload contains the observation details.
type ObservationPayload struct {
	ID            string  `json:"id"`
	Timestamp     string  `json:"timestamp"`
	TemperatureF  float64 `json:"temperature_f"`
	HumidityPct   float64 `json:"humidity_pct"`
	HeatRelay     string  `json:"heat_relay"`
	HumidityRelay string  `json:"humidity_relay"`
	LastEggTurn   string  `json:"last_egg_turn,omitempty"`
	DayInCycle    int     `json:"day_in_cycle"`
}

// FormatPayload creates the JSON payload for an observation.
func FormatPayload(obs logic.Observation) ([]byte, error) {
	p := Payload{
		Observation: ObservationPayload{
			ID:            obs.ID.String(),
			Timestamp:     obs.Timestamp.UTC().Format(time.RFC3339),
			TemperatureF:  obs.TemperatureF,
			HumidityPct:   obs.HumidityPct,
			HeatRelay:     string(obs.HeatRelay),
			HumidityRelay: string(obs.HumidityRelay),
			DayInCycle:    obs.DayInCycle,
		},
	}
	if !obs.LastEggTurn.IsZero() {
		p.Observation.LastEggTurn = obs.LastEggTurn.UTC().Format(time.RFC3339)
	}
	return json.Marshal(p)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED, FAULT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
			Detail: event.Detail,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// willPayload is published by the broker if the daemon disappears without
// a clean disconnect. It has no timestamp since it is composed at connect time.
func willPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: EventLost, Reason: "connection lost"}})
	return data
}
