//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(pins Pins) (*RealActuator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (a *RealActuator) Set(ch logic.Channel, state logic.State) error {
	return errors.New("gpio: not supported")
}

// Get is not implemented on non-Linux platforms.
func (a *RealActuator) Get(ch logic.Channel) (logic.State, error) {
	return "", errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (a *RealActuator) Close() error {
	return nil
}
