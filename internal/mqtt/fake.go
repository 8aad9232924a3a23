package mqtt

import (
	"sync"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// FakePublisher records published messages for test assertions.
// Safe for concurrent use since the control loop publishes from its own goroutine.
type FakePublisher struct {
	mu sync.Mutex

	observations   []logic.Observation
	payloads       [][]byte
	systemEvents   []SystemEvent
	systemPayloads [][]byte

	publishErr       error
	publishSystemErr error
	closed           bool
	connected        bool
}

// NewFakePublisher creates a FakePublisher for testing. It reports itself as connected.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{connected: true}
}

// PublishObservation records the observation and its payload.
func (f *FakePublisher) PublishObservation(obs logic.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}
	payload, err := FormatPayload(obs)
	if err != nil {
		return err
	}
	f.observations = append(f.observations, obs)
	f.payloads = append(f.payloads, payload)
	return nil
}

// PublishSystem records the system event and its payload.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishSystemErr != nil {
		return f.publishSystemErr
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsConnected returns the value set by SetConnected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected controls the return value of IsConnected.
func (f *FakePublisher) SetConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

// SetPublishError makes PublishObservation fail with err. Pass nil to clear.
func (f *FakePublisher) SetPublishError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErr = err
}

// SetPublishSystemError makes PublishSystem fail with err. Pass nil to clear.
func (f *FakePublisher) SetPublishSystemError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishSystemErr = err
}

// Observations returns a copy of the published observations.
func (f *FakePublisher) Observations() []logic.Observation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Observation(nil), f.observations...)
}

// Payloads returns a copy of the observation payloads.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// SystemEvents returns a copy of the published system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns a copy of the system event payloads.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// EventsNamed returns the recorded system events with the given name.
func (f *FakePublisher) EventsNamed(name string) []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SystemEvent
	for _, e := range f.systemEvents {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears all recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = nil
	f.payloads = nil
	f.systemEvents = nil
	f.systemPayloads = nil
}

// Verify FakePublisher implements the interfaces.
var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
