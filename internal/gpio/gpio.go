// Package gpio drives the incubator relays with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/egg-incubator/internal/logic"

// Actuator sets and reads back the logical state of the relay channels.
type Actuator interface {
	// Set drives a channel to the given logical state.
	Set(ch logic.Channel, state logic.State) error

	// Get returns the channel's current electrical state in logical form.
	// Relays are active-low: raw 0 = logical ON.
	Get(ch logic.Channel) (logic.State, error)

	// Close switches every relay off and releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinTurner   = 19
	DefaultPinHumidity = 20
	DefaultPinHeat     = 21
)

// Pins maps each channel to its BCM pin.
type Pins struct {
	Heat     int
	Humidity int
	Turner   int
}

// DefaultPins returns the wiring used by the reference build.
func DefaultPins() Pins {
	return Pins{Heat: DefaultPinHeat, Humidity: DefaultPinHumidity, Turner: DefaultPinTurner}
}

func (p Pins) pin(ch logic.Channel) (int, bool) {
	switch ch {
	case logic.ChannelHeat:
		return p.Heat, true
	case logic.ChannelHumidity:
		return p.Humidity, true
	case logic.ChannelTurner:
		return p.Turner, true
	}
	return 0, false
}

// rawValue converts a logical state to the active-low line value.
func rawValue(s logic.State) int {
	if s == logic.StateOn {
		return 0
	}
	return 1
}

func stateFromRaw(v int) logic.State {
	if v == 0 {
		return logic.StateOn
	}
	return logic.StateOff
}
