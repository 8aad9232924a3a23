package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/egg-incubator/internal/config"
	"github.com/sweeney/egg-incubator/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Reading       *ReadingJSON      `json:"reading,omitempty"`
	SensorError   string            `json:"sensor_error,omitempty"`
	Cycle         CycleJSON         `json:"cycle"`
	Relays        RelaysJSON        `json:"relays"`
	Faults        FaultsJSON        `json:"faults"`
	MQTTConnected bool              `json:"mqtt_connected"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	Config        ConfigJSON        `json:"config"`
	Observations  []ObservationJSON `json:"observations,omitempty"`
}

// ReadingJSON is the last successful sensor reading.
type ReadingJSON struct {
	TemperatureF float64 `json:"temperature_f"`
	HumidityPct  float64 `json:"humidity_pct"`
	Timestamp    string  `json:"timestamp"`
}

// CycleJSON describes where the batch is in its cycle.
type CycleJSON struct {
	Day            int     `json:"day_in_cycle"`
	Lockdown       bool    `json:"lockdown"`
	PostHatch      bool    `json:"post_hatch"`
	HumidityTarget float64 `json:"humidity_target"`
	LockdownDate   string  `json:"lockdown_date"`
	HatchDate      string  `json:"hatch_date"`
	Error          string  `json:"error,omitempty"`
}

// RelaysJSON reports the last-commanded relay states.
type RelaysJSON struct {
	Heat          string `json:"heat"`
	Humidity      string `json:"humidity"`
	TurnerEngaged bool   `json:"turner_engaged"`
	LastEggTurn   string `json:"last_egg_turn,omitempty"`
}

// FaultsJSON is the JSON representation of fault counters.
type FaultsJSON struct {
	SensorFailures     int `json:"sensor_failures"`
	ActuatorMismatches int `json:"actuator_mismatches"`
	PersistenceErrors  int `json:"persistence_errors"`
	ConfigErrors       int `json:"config_errors"`
}

// ConfigJSON is the JSON representation of the incubation configuration.
type ConfigJSON struct {
	StartDate            string  `json:"start_date"`
	LogInterval          int64   `json:"log_interval"`
	RelayInterval        int64   `json:"relay_interval"`
	RollInterval         int64   `json:"roll_interval"`
	TemperatureThreshold float64 `json:"temperature_threshold"`
	HumidityThreshold    float64 `json:"humidity_threshold"`
	LockdownHumidity     float64 `json:"lockdown_humidity"`
	LockdownDay          int     `json:"lockdown_day"`
	HatchDay             int     `json:"hatch_day"`
	PollMs               int64   `json:"poll_ms"`
	HeartbeatMs          int64   `json:"heartbeat_ms"`
	Broker               string  `json:"broker,omitempty"`
	HTTPAddr             string  `json:"http_addr,omitempty"`
}

// ObservationJSON is the JSON representation of a log record.
type ObservationJSON struct {
	ID            string  `json:"id"`
	Timestamp     string  `json:"timestamp"`
	TemperatureF  float64 `json:"temperature_f"`
	HumidityPct   float64 `json:"humidity_pct"`
	HeatRelay     string  `json:"heat_relay"`
	HumidityRelay string  `json:"humidity_relay"`
	LastEggTurn   string  `json:"last_egg_turn,omitempty"`
	DayInCycle    int     `json:"day_in_cycle"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatObservation converts a log record to its JSON form.
func FormatObservation(o logic.Observation) ObservationJSON {
	return ObservationJSON{
		ID:            o.ID.String(),
		Timestamp:     formatTime(o.Timestamp),
		TemperatureF:  o.TemperatureF,
		HumidityPct:   o.HumidityPct,
		HeatRelay:     string(o.HeatRelay),
		HumidityRelay: string(o.HumidityRelay),
		LastEggTurn:   formatTime(o.LastEggTurn),
		DayInCycle:    o.DayInCycle,
	}
}

// FormatObservations converts a slice of log records.
func FormatObservations(obs []logic.Observation) []ObservationJSON {
	out := make([]ObservationJSON, 0, len(obs))
	for _, o := range obs {
		out = append(out, FormatObservation(o))
	}
	return out
}

// Build converts a snapshot to its JSON structure.
func Build(snap Snapshot) StatusInner {
	inner := StatusInner{
		SensorError: snap.SensorError,
		Cycle: CycleJSON{
			Day:            snap.Cycle.Day,
			Lockdown:       snap.Cycle.Lockdown,
			PostHatch:      snap.Cycle.PostHatch,
			HumidityTarget: snap.Cycle.HumidityTarget(snap.Config.HumidityThreshold, snap.Config.LockdownHumidity),
			LockdownDate:   snap.Lockdown.Format("2006-01-02"),
			HatchDate:      snap.Hatch.Format("2006-01-02"),
			Error:          snap.CycleError,
		},
		Relays: RelaysJSON{
			Heat:          stateOrUnknown(snap.Actuators.Heat),
			Humidity:      stateOrUnknown(snap.Actuators.Humidity),
			TurnerEngaged: snap.TurnerEngaged,
			LastEggTurn:   formatTime(snap.LastTurn),
		},
		Faults: FaultsJSON{
			SensorFailures:     snap.Faults.SensorFailures,
			ActuatorMismatches: snap.Faults.ActuatorMismatches,
			PersistenceErrors:  snap.Faults.PersistenceErrors,
			ConfigErrors:       snap.Faults.ConfigErrors,
		},
		MQTTConnected: snap.MQTTConnected,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Config:        FormatConfig(snap.Config, snap.Daemon),
	}
	if !snap.Reading.Time.IsZero() {
		inner.Reading = &ReadingJSON{
			TemperatureF: snap.Reading.TemperatureF,
			HumidityPct:  snap.Reading.HumidityPct,
			Timestamp:    formatTime(snap.Reading.Time),
		}
	}
	return inner
}

// FormatConfig converts the incubation and daemon settings to JSON form.
// Intervals are reported in seconds.
func FormatConfig(c config.Incubation, d Daemon) ConfigJSON {
	return ConfigJSON{
		StartDate:            c.StartDate.String(),
		LogInterval:          int64(c.LogInterval.Duration().Seconds()),
		RelayInterval:        int64(c.RelayInterval.Duration().Seconds()),
		RollInterval:         int64(c.RollInterval.Duration().Seconds()),
		TemperatureThreshold: c.TemperatureThreshold,
		HumidityThreshold:    c.HumidityThreshold,
		LockdownHumidity:     c.LockdownHumidity,
		LockdownDay:          c.LockdownDay,
		HatchDay:             c.HatchDay,
		PollMs:               d.PollMs,
		HeartbeatMs:          d.HeartbeatMs,
		Broker:               d.Broker,
		HTTPAddr:             d.HTTPAddr,
	}
}

func stateOrUnknown(s logic.State) string {
	if s == "" {
		return "UNKNOWN"
	}
	return string(s)
}

// FormatJSON returns the JSON status for the web endpoint, including the
// most recent observations.
func FormatJSON(snap Snapshot, recent []logic.Observation) []byte {
	inner := Build(snap)
	inner.Observations = FormatObservations(recent)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := Build(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
