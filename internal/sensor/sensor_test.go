package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c, want float64
	}{
		{0, 32},
		{37.5, 99.5},
		{37.77, 100},
		{-40, -40},
	}
	for _, tt := range tests {
		if got := CelsiusToFahrenheit(tt.c); got != tt.want {
			t.Errorf("CelsiusToFahrenheit(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestDecodeAHT20(t *testing.T) {
	// Half-scale humidity (0x80000) and half-scale temperature (0x80000 → 50°C).
	frame := []byte{0x1C, 0x80, 0x00, 0x08, 0x00, 0x00}
	c, h := decodeAHT20(frame)
	if math.Abs(h-50) > 0.001 {
		t.Errorf("humidity: got %v, want 50", h)
	}
	if math.Abs(c-50) > 0.001 {
		t.Errorf("celsius: got %v, want 50", c)
	}

	frame = []byte{0x1C, 0x00, 0x00, 0x00, 0x00, 0x00}
	c, h = decodeAHT20(frame)
	if h != 0 || c != -50 {
		t.Errorf("zero frame: got (%v, %v), want (-50, 0)", c, h)
	}
}

func TestFakeReaderReplaysSamples(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := NewFakeReader([]Sample{
		{TemperatureF: 99.5, HumidityPct: 48},
		{Err: errors.New("i2c timeout")},
		{TemperatureF: 100.2, HumidityPct: 51},
	})
	f.Now = func() time.Time { return ts }

	r, err := f.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureF != 99.5 || r.HumidityPct != 48 || !r.Time.Equal(ts) {
		t.Errorf("sample 0: got %+v", r)
	}

	_, err = f.Read(context.Background())
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("sample 1: expected ErrReadFailure, got %v", err)
	}

	r, _ = f.Read(context.Background())
	if r.TemperatureF != 100.2 {
		t.Errorf("sample 2: got %+v", r)
	}

	// Exhausted samples repeat the last one.
	r, _ = f.Read(context.Background())
	if r.TemperatureF != 100.2 {
		t.Errorf("sample 3 (repeat): got %+v", r)
	}
	if f.Reads() != 4 {
		t.Errorf("Reads: got %d, want 4", f.Reads())
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	_, err := NewFakeReader(nil).Read(context.Background())
	if !errors.Is(err, ErrReadFailure) {
		t.Errorf("expected ErrReadFailure, got %v", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	f := NewFakeReader([]Sample{
		{Err: errors.New("nack")},
		{Err: errors.New("nack")},
		{TemperatureF: 99, HumidityPct: 50},
	})
	r := Retry(f, 3, time.Millisecond)

	got, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TemperatureF != 99 {
		t.Errorf("got %+v", got)
	}
	if f.Reads() != 3 {
		t.Errorf("Reads: got %d, want 3", f.Reads())
	}
}

func TestRetryGivesUp(t *testing.T) {
	f := NewFakeReader([]Sample{{Err: errors.New("nack")}})
	r := Retry(f, 2, time.Millisecond)

	_, err := r.Read(context.Background())
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
	if f.Reads() != 2 {
		t.Errorf("Reads: got %d, want 2", f.Reads())
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	f := NewFakeReader([]Sample{{Err: errors.New("nack")}})
	r := Retry(f, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Read(ctx)
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
	if f.Reads() != 1 {
		t.Errorf("Reads: got %d, want 1", f.Reads())
	}
}

func TestRetryClosesInner(t *testing.T) {
	f := NewFakeReader(nil)
	if err := Retry(f, 1, 0).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed() {
		t.Error("expected inner reader closed")
	}
}
