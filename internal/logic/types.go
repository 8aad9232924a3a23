// Package logic contains the pure incubation control logic.
// This package has NO hardware, storage or network dependencies (no GPIO,
// I2C, MQTT or database).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/google/uuid"
)

// State represents the logical state of a relay channel.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Channel identifies one of the incubator's relay outputs.
type Channel string

const (
	ChannelHeat     Channel = "heat"
	ChannelHumidity Channel = "humidity"
	ChannelTurner   Channel = "turner"
)

// Channels lists every relay channel in shutdown order.
var Channels = []Channel{ChannelHeat, ChannelHumidity, ChannelTurner}

// Reading is a single sensor sample.
type Reading struct {
	TemperatureF float64
	HumidityPct  float64
	Time         time.Time
}

// ActuatorStatus holds the last-commanded heat and humidifier relay states.
type ActuatorStatus struct {
	Heat     State
	Humidity State
}

// DefaultActuatorStatus is the status assumed at startup, with every relay off.
var DefaultActuatorStatus = ActuatorStatus{Heat: StateOff, Humidity: StateOff}

// CycleState is derived from the start date on every tick.
type CycleState struct {
	// Day is whole days since start, modulo CycleDays.
	Day int
	// Lockdown is true once Day >= lockdown day.
	Lockdown bool
	// PostHatch is true when the unwrapped day count reached CycleDays,
	// i.e. Day has wrapped around at least once.
	PostHatch bool
}

// HumidityTarget returns the humidity threshold in effect for this cycle state.
func (c CycleState) HumidityTarget(normal, lockdown float64) float64 {
	if c.Lockdown {
		return lockdown
	}
	return normal
}

// Observation is an immutable log record.
type Observation struct {
	ID            uuid.UUID
	Timestamp     time.Time
	TemperatureF  float64
	HumidityPct   float64
	HeatRelay     State
	HumidityRelay State
	// LastEggTurn is zero when no turn has been recorded yet.
	LastEggTurn time.Time
	DayInCycle  int
}

// NewObservation builds an observation from a reading and the current control state.
func NewObservation(r Reading, status ActuatorStatus, lastTurn time.Time, day int) Observation {
	return Observation{
		ID:            uuid.New(),
		Timestamp:     r.Time,
		TemperatureF:  r.TemperatureF,
		HumidityPct:   r.HumidityPct,
		HeatRelay:     status.Heat,
		HumidityRelay: status.Humidity,
		LastEggTurn:   lastTurn,
		DayInCycle:    day,
	}
}
