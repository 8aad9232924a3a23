// Package settings owns the process-wide incubation configuration and
// serialises configuration changes against observation appends.
//
// Manager.mu is the only lock. It is held for writing while a configuration
// update validates, clears the log (on a start date change), swaps the config
// and rewrites the config file, and held for reading while an observation is
// appended. Callers must not hold any other lock when calling into Manager.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/egg-incubator/internal/config"
	"github.com/sweeney/egg-incubator/internal/logic"
	"github.com/sweeney/egg-incubator/internal/store"
)

// ErrStaleEpoch is returned by Append when the observation belongs to a
// batch whose log has since been cleared.
var ErrStaleEpoch = errors.New("observation belongs to a previous batch")

// ErrNotSaved is returned by Update when the change is in effect but the
// config file could not be rewritten.
var ErrNotSaved = errors.New("configuration not saved")

// Snapshot is a consistent view of the configuration.
type Snapshot struct {
	Config config.File
	// Epoch increases every time start_date changes and the log is cleared.
	Epoch uint64
}

// SaveFunc persists the configuration document.
type SaveFunc func(config.File) error

// Manager guards the configuration and the observation log.
type Manager struct {
	mu    sync.RWMutex
	cfg   config.File
	epoch uint64
	log   store.Log
	save  SaveFunc
}

// New creates a Manager. save may be nil to skip writing the config file.
func New(cfg config.File, log store.Log, save SaveFunc) *Manager {
	return &Manager{cfg: cfg, log: log, save: save}
}

// Current returns the configuration in effect.
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Config: m.cfg, Epoch: m.epoch}
}

// Update applies a single field change. Invalid requests return a
// *config.ValidationError and leave the configuration untouched. Changing
// start_date clears the observation log before the new date is published.
func (m *Manager) Update(ctx context.Context, field, value string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := config.Apply(m.cfg.Incubation, field, value)
	if err != nil {
		return Snapshot{Config: m.cfg, Epoch: m.epoch}, err
	}

	newCfg := m.cfg
	newCfg.Incubation = next
	restart := field == config.FieldStartDate && !next.StartDate.Equal(m.cfg.StartDate.Time)

	if restart {
		if err := m.log.Clear(ctx); err != nil {
			return Snapshot{Config: m.cfg, Epoch: m.epoch}, fmt.Errorf("clear observations: %w", err)
		}
	}

	m.cfg = newCfg
	if restart {
		m.epoch++
	}

	snap := Snapshot{Config: m.cfg, Epoch: m.epoch}
	if m.save != nil {
		if err := m.save(newCfg); err != nil {
			return snap, fmt.Errorf("%w: %v", ErrNotSaved, err)
		}
	}
	return snap, nil
}

// Append records obs if epoch is still current.
func (m *Manager) Append(ctx context.Context, epoch uint64, obs logic.Observation) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if epoch != m.epoch {
		return ErrStaleEpoch
	}
	return m.log.Append(ctx, obs)
}

// Latest returns the most recent observation of the current batch.
func (m *Manager) Latest(ctx context.Context) (logic.Observation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.Latest(ctx)
}

// Recent returns up to n observations of the current batch, newest first.
func (m *Manager) Recent(ctx context.Context, n int) ([]logic.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.Recent(ctx, n)
}

// All returns every observation of the current batch, oldest first.
func (m *Manager) All(ctx context.Context) ([]logic.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.All(ctx)
}
