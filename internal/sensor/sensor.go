// Package sensor reads incubator temperature and humidity with hardware
// abstraction. The real implementation talks to an AHT20 over I²C.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// ErrReadFailure marks a failed sensor read. Every error returned by a Reader
// wraps it.
var ErrReadFailure = errors.New("sensor read failed")

// Reader produces temperature and humidity readings.
type Reader interface {
	// Read returns a reading in °F and %RH, or an error wrapping ErrReadFailure.
	Read(ctx context.Context) (logic.Reading, error)

	// Close releases sensor resources.
	Close() error
}

// CelsiusToFahrenheit converts and rounds to one decimal place.
func CelsiusToFahrenheit(c float64) float64 {
	return round1(c*9/5 + 32)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func failure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrReadFailure, fmt.Sprintf(format, args...))
}

type retryReader struct {
	inner    Reader
	attempts int
	delay    time.Duration
}

// Retry wraps r so that a failed read is retried up to attempts times in
// total, waiting delay between tries. The last failure is returned.
func Retry(r Reader, attempts int, delay time.Duration) Reader {
	if attempts < 1 {
		attempts = 1
	}
	return &retryReader{inner: r, attempts: attempts, delay: delay}
}

func (r *retryReader) Read(ctx context.Context) (logic.Reading, error) {
	var err error
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return logic.Reading{}, fmt.Errorf("%w: %v", ErrReadFailure, ctx.Err())
			case <-time.After(r.delay):
			}
		}
		var reading logic.Reading
		reading, err = r.inner.Read(ctx)
		if err == nil {
			return reading, nil
		}
	}
	return logic.Reading{}, fmt.Errorf("after %d attempts: %w", r.attempts, err)
}

func (r *retryReader) Close() error {
	return r.inner.Close()
}
