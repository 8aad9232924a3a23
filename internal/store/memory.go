package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// Memory is an in-process Log. It doubles as a test double: setting
// AppendError simulates an unavailable backend.
type Memory struct {
	mu   sync.RWMutex
	obs  []logic.Observation
	fail error

	closed bool
}

// NewMemory returns an empty Memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// SetAppendError makes every subsequent Append fail with err (nil clears it).
func (m *Memory) SetAppendError(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *Memory) Append(ctx context.Context, obs logic.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, m.fail)
	}
	m.obs = append(m.obs, obs)
	return nil
}

func (m *Memory) Latest(ctx context.Context) (logic.Observation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.obs) == 0 {
		return logic.Observation{}, false, nil
	}
	return m.obs[len(m.obs)-1], true, nil
}

func (m *Memory) Recent(ctx context.Context, n int) ([]logic.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.obs) {
		n = len(m.obs)
	}
	out := make([]logic.Observation, 0, n)
	for i := len(m.obs) - 1; i >= len(m.obs)-n; i-- {
		out = append(out, m.obs[i])
	}
	return out, nil
}

func (m *Memory) All(ctx context.Context) ([]logic.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]logic.Observation(nil), m.obs...), nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.obs = nil
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored observations.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.obs)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
