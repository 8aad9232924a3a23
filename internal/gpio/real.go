//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// RealActuator drives relays on actual hardware using Linux GPIO character device.
type RealActuator struct {
	chip  *gpiocdev.Chip
	lines map[logic.Channel]*gpiocdev.Line
}

// NewRealActuator requests the relay lines as outputs, initially OFF.
func NewRealActuator(pins Pins) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0", gpiocdev.WithConsumer("egg-incubator"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	a := &RealActuator{
		chip:  chip,
		lines: make(map[logic.Channel]*gpiocdev.Line, len(logic.Channels)),
	}
	for _, ch := range logic.Channels {
		pin, _ := pins.pin(ch)
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(rawValue(logic.StateOff)))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", ch, pin, err)
		}
		a.lines[ch] = line
	}
	return a, nil
}

// Set drives a relay. Inverts: logical ON = raw 0.
func (a *RealActuator) Set(ch logic.Channel, state logic.State) error {
	line, ok := a.lines[ch]
	if !ok {
		return fmt.Errorf("unknown channel %q", ch)
	}
	if err := line.SetValue(rawValue(state)); err != nil {
		return fmt.Errorf("set %s %s: %w", ch, state, err)
	}
	return nil
}

// Get reads a relay line back.
func (a *RealActuator) Get(ch logic.Channel) (logic.State, error) {
	line, ok := a.lines[ch]
	if !ok {
		return "", fmt.Errorf("unknown channel %q", ch)
	}
	v, err := line.Value()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ch, err)
	}
	return stateFromRaw(v), nil
}

// Close drives every relay OFF, then reconfigures the lines as inputs with
// pull-up (matching the relay board's idle level) and releases them.
func (a *RealActuator) Close() error {
	var errs []error

	for _, ch := range logic.Channels {
		line := a.lines[ch]
		if line == nil {
			continue
		}
		if err := line.SetValue(rawValue(logic.StateOff)); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s: %w", ch, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s: %w", ch, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ch, err))
		}
		delete(a.lines, ch)
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		a.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
