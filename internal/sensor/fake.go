package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// Sample is a scripted sensor result. A non-nil Err makes that read fail.
type Sample struct {
	TemperatureF float64
	HumidityPct  float64
	Err          error
}

// FakeReader is a test double that replays scripted samples.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// Now stamps returned readings; defaults to time.Now.
	Now func() time.Time

	index  int
	reads  int
	closed bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples, Now: time.Now}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read(ctx context.Context) (logic.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if len(f.Samples) == 0 {
		return logic.Reading{}, failure("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	if s.Err != nil {
		if errors.Is(s.Err, ErrReadFailure) {
			return logic.Reading{}, s.Err
		}
		return logic.Reading{}, failure("%v", s.Err)
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return logic.Reading{TemperatureF: s.TemperatureF, HumidityPct: s.HumidityPct, Time: now()}, nil
}

// Reads returns how many times Read was called.
func (f *FakeReader) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
