package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// Command is a single recorded Set call.
type Command struct {
	Channel logic.Channel
	State   logic.State
}

// FakeActuator is a test double that records commanded relay states.
// It is safe for concurrent use so tests can inspect it while a loop runs.
type FakeActuator struct {
	mu sync.Mutex

	commands []Command
	states   map[logic.Channel]logic.State
	stuck    map[logic.Channel]logic.State
	setErr   error
	closed   bool
}

// NewFakeActuator creates a FakeActuator with every channel OFF.
func NewFakeActuator() *FakeActuator {
	f := &FakeActuator{
		states: make(map[logic.Channel]logic.State),
		stuck:  make(map[logic.Channel]logic.State),
	}
	for _, ch := range logic.Channels {
		f.states[ch] = logic.StateOff
	}
	return f
}

// Set records the command. A stuck channel keeps reporting its stuck state.
func (f *FakeActuator) Set(ch logic.Channel, state logic.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}
	if _, ok := f.states[ch]; !ok {
		return fmt.Errorf("unknown channel %q", ch)
	}
	f.commands = append(f.commands, Command{Channel: ch, State: state})
	f.states[ch] = state
	return nil
}

// Get returns the channel's simulated electrical state.
func (f *FakeActuator) Get(ch logic.Channel) (logic.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stuck[ch]; ok {
		return s, nil
	}
	s, ok := f.states[ch]
	if !ok {
		return "", fmt.Errorf("unknown channel %q", ch)
	}
	return s, nil
}

// Close switches every channel off and marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range logic.Channels {
		f.states[ch] = logic.StateOff
	}
	f.closed = true
	return nil
}

// Stick makes Get report state for ch regardless of commands, simulating a
// welded or disconnected relay.
func (f *FakeActuator) Stick(ch logic.Channel, state logic.State) {
	f.mu.Lock()
	f.stuck[ch] = state
	f.mu.Unlock()
}

// SetError makes every subsequent Set fail with err (nil clears it).
func (f *FakeActuator) SetError(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// Commands returns a copy of the recorded commands.
func (f *FakeActuator) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// CommandsFor returns the recorded states commanded on a single channel.
func (f *FakeActuator) CommandsFor(ch logic.Channel) []logic.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []logic.State
	for _, c := range f.commands {
		if c.Channel == ch {
			out = append(out, c.State)
		}
	}
	return out
}

// State returns the last commanded state of ch.
func (f *FakeActuator) State(ch logic.Channel) logic.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[ch]
}

// Closed reports whether Close was called.
func (f *FakeActuator) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
