package logic

import (
	"errors"
	"testing"
	"time"
)

var start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestCycleDayTruncates(t *testing.T) {
	tests := []struct {
		name     string
		offset   time.Duration
		wantDay  int
		lockdown bool
		post     bool
	}{
		{"start", 0, 0, false, false},
		{"almost one day", 23*time.Hour + 59*time.Minute, 0, false, false},
		{"one day", 24 * time.Hour, 1, false, false},
		{"day 17 evening", 17*24*time.Hour + 20*time.Hour, 17, false, false},
		{"lockdown", 18 * 24 * time.Hour, 18, true, false},
		{"day 20", 20*24*time.Hour + 12*time.Hour, 20, true, false},
		{"wraps at 21", 21 * 24 * time.Hour, 0, false, true},
		{"second cycle day 5", 26 * 24 * time.Hour, 5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Cycle(start.Add(tt.offset), start, 18)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Day != tt.wantDay {
				t.Errorf("Day: got %d, want %d", c.Day, tt.wantDay)
			}
			if c.Lockdown != tt.lockdown {
				t.Errorf("Lockdown: got %v, want %v", c.Lockdown, tt.lockdown)
			}
			if c.PostHatch != tt.post {
				t.Errorf("PostHatch: got %v, want %v", c.PostHatch, tt.post)
			}
		})
	}
}

func TestCycleDayFollowsLocalMidnightAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	batch := time.Date(2026, 3, 1, 0, 0, 0, 0, ny)

	tests := []struct {
		name    string
		now     time.Time
		wantDay int
	}{
		// Clocks spring forward on 2026-03-08.
		{"before the change", time.Date(2026, 3, 7, 23, 30, 0, 0, ny), 6},
		{"day of the change", time.Date(2026, 3, 8, 12, 0, 0, 0, ny), 7},
		{"first hour after midnight", time.Date(2026, 3, 9, 0, 30, 0, 0, ny), 8},
		{"lockdown at local midnight", time.Date(2026, 3, 19, 0, 0, 0, 0, ny), 18},
		{"observed in UTC", time.Date(2026, 3, 9, 4, 30, 0, 0, time.UTC), 8},
		// Clocks fall back on 2026-11-01; the 21-day cycle wraps through it.
		{"after fall back", time.Date(2026, 11, 2, 0, 30, 0, 0, ny), 246 % CycleDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Cycle(tt.now, batch, 18)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Day != tt.wantDay {
				t.Errorf("Day: got %d, want %d", c.Day, tt.wantDay)
			}
		})
	}
}

func TestCycleDayAlwaysInRange(t *testing.T) {
	for h := 0; h < 24*100; h += 7 {
		c, err := Cycle(start.Add(time.Duration(h)*time.Hour), start, 18)
		if err != nil {
			t.Fatalf("hour %d: unexpected error: %v", h, err)
		}
		if c.Day < 0 || c.Day >= CycleDays {
			t.Fatalf("hour %d: day %d out of range", h, c.Day)
		}
		if c.Lockdown != (c.Day >= 18) {
			t.Fatalf("hour %d: lockdown %v inconsistent with day %d", h, c.Lockdown, c.Day)
		}
	}
}

func TestCycleStartInFuture(t *testing.T) {
	c, err := Cycle(start.Add(-time.Hour), start, 18)
	if !errors.Is(err, ErrStartInFuture) {
		t.Fatalf("expected ErrStartInFuture, got %v", err)
	}
	if c.Day != 0 {
		t.Errorf("expected day clamped to 0, got %d", c.Day)
	}
	if c.Lockdown {
		t.Error("expected no lockdown for a future start")
	}
}

func TestHumidityTarget(t *testing.T) {
	c, _ := Cycle(start.Add(18*24*time.Hour), start, 18)
	if got := c.HumidityTarget(50, 75); got != 75 {
		t.Errorf("lockdown target: got %v, want 75", got)
	}

	c, _ = Cycle(start.Add(17*24*time.Hour), start, 18)
	if got := c.HumidityTarget(50, 75); got != 50 {
		t.Errorf("pre-lockdown target: got %v, want 50", got)
	}
}

func TestSchedule(t *testing.T) {
	lockdown, hatch := Schedule(start, 18, 21)
	if want := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC); !lockdown.Equal(want) {
		t.Errorf("lockdown: got %v, want %v", lockdown, want)
	}
	if want := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC); !hatch.Equal(want) {
		t.Errorf("hatch: got %v, want %v", hatch, want)
	}
}
