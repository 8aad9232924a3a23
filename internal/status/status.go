// Package status provides a thread-safe snapshot of the incubator for the
// dashboard and MQTT status events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/egg-incubator/internal/config"
	"github.com/sweeney/egg-incubator/internal/logic"
)

// Faults counts degraded-operation events since startup.
type Faults struct {
	SensorFailures     int
	ActuatorMismatches int
	PersistenceErrors  int
	ConfigErrors       int
}

// Daemon contains process-level settings for display.
type Daemon struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Database    string
}

// Snapshot is a point-in-time view of the incubator.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	// Reading is the last successful sensor reading; zero until the first.
	Reading     logic.Reading
	SensorError string

	Cycle      logic.CycleState
	CycleError string
	Lockdown   time.Time
	Hatch      time.Time

	Actuators     logic.ActuatorStatus
	TurnerEngaged bool
	LastTurn      time.Time

	Faults        Faults
	MQTTConnected bool
	Config        config.Incubation
	Daemon        Daemon

	StartTime time.Time
	Now       time.Time
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and daemon settings.
func NewTracker(startTime time.Time, d Daemon) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Daemon:    d,
			Actuators: logic.DefaultActuatorStatus,
		},
		now: time.Now,
	}
}

// SetReading records a successful reading and clears any sensor error.
func (t *Tracker) SetReading(r logic.Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.SensorError = ""
	t.mu.Unlock()
}

// SetSensorError records a failed read; the last good reading is kept.
func (t *Tracker) SetSensorError(err error) {
	t.mu.Lock()
	t.snap.SensorError = err.Error()
	t.snap.Faults.SensorFailures++
	t.mu.Unlock()
}

// SetCycle records the cycle state. A non-nil err (e.g. a start date in the
// future) is shown alongside.
func (t *Tracker) SetCycle(c logic.CycleState, err error) {
	t.mu.Lock()
	t.snap.Cycle = c
	t.snap.CycleError = ""
	if err != nil {
		t.snap.CycleError = err.Error()
	}
	t.mu.Unlock()
}

// SetConfig records the configuration and the lockdown and hatch dates
// derived from it. It is the only writer of Config.
func (t *Tracker) SetConfig(cfg config.Incubation) {
	t.mu.Lock()
	t.snap.Lockdown, t.snap.Hatch = logic.Schedule(cfg.StartDate.Time, cfg.LockdownDay, cfg.HatchDay)
	t.snap.Config = cfg
	t.mu.Unlock()
}

// SetActuators records the last-commanded relay states.
func (t *Tracker) SetActuators(a logic.ActuatorStatus, turnerEngaged bool, lastTurn time.Time) {
	t.mu.Lock()
	t.snap.Actuators = a
	t.snap.TurnerEngaged = turnerEngaged
	t.snap.LastTurn = lastTurn
	t.mu.Unlock()
}

// CountActuatorMismatch increments the mismatch counter.
func (t *Tracker) CountActuatorMismatch() {
	t.mu.Lock()
	t.snap.Faults.ActuatorMismatches++
	t.mu.Unlock()
}

// CountPersistenceError increments the persistence failure counter.
func (t *Tracker) CountPersistenceError() {
	t.mu.Lock()
	t.snap.Faults.PersistenceErrors++
	t.mu.Unlock()
}

// CountConfigError increments the configuration error counter.
func (t *Tracker) CountConfigError() {
	t.mu.Lock()
	t.snap.Faults.ConfigErrors++
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
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
