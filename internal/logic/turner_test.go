package logic

import (
	"testing"
	"time"
)

var turnSettings = TurnerSettings{
	RelayInterval: 4 * time.Hour,
	RollInterval:  2 * time.Minute,
	LockdownDay:   18,
}

func TestTurnerColdStart(t *testing.T) {
	tr := NewTurner()
	if _, ok := tr.LastTurn(); ok {
		t.Fatal("expected no last turn before first step")
	}

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if cmd := tr.Step(t0, 0, turnSettings); cmd != TurnNone {
		t.Errorf("cold start: got %v, want NONE", cmd)
	}
	last, ok := tr.LastTurn()
	if !ok || !last.Equal(t0) {
		t.Errorf("LastTurn: got (%v, %v), want (%v, true)", last, ok, t0)
	}
	if tr.State() != TurnerIdle {
		t.Errorf("state: got %s, want IDLE", tr.State())
	}
}

func TestTurnerPeriodIsMeasuredFromTurnStart(t *testing.T) {
	const R = 4 * time.Hour
	const D = 2 * time.Minute
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tr := NewTurner()
	tr.Step(t0, 0, turnSettings)

	if cmd := tr.Step(t0.Add(R-time.Second), 0, turnSettings); cmd != TurnNone {
		t.Fatalf("before R: got %v, want NONE", cmd)
	}

	if cmd := tr.Step(t0.Add(R), 0, turnSettings); cmd != TurnOn {
		t.Fatalf("at T0+R: got %v, want ON", cmd)
	}
	if !tr.Engaged() {
		t.Error("expected turner engaged after ON")
	}

	if cmd := tr.Step(t0.Add(R+D-time.Second), 0, turnSettings); cmd != TurnNone {
		t.Fatalf("before T0+R+D: got %v, want NONE", cmd)
	}

	if cmd := tr.Step(t0.Add(R+D), 0, turnSettings); cmd != TurnOff {
		t.Fatalf("at T0+R+D: got %v, want OFF", cmd)
	}
	if tr.State() != TurnerIdle {
		t.Errorf("state: got %s, want IDLE", tr.State())
	}

	// Turning off does not move the period start.
	last, _ := tr.LastTurn()
	if !last.Equal(t0.Add(R)) {
		t.Errorf("LastTurn after OFF: got %v, want %v", last, t0.Add(R))
	}

	for ts := t0.Add(R + D); ts.Before(t0.Add(2 * R)); ts = ts.Add(10 * time.Minute) {
		if cmd := tr.Step(ts, 0, turnSettings); cmd != TurnNone {
			t.Fatalf("at %v: unexpected %v before T0+2R", ts.Sub(t0), cmd)
		}
	}

	if cmd := tr.Step(t0.Add(2*R), 0, turnSettings); cmd != TurnOn {
		t.Fatalf("at T0+2R: got %v, want ON", cmd)
	}
}

func TestTurnerFrozenAfterLockdown(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tr := NewTurner()
	tr.Step(t0, 17, turnSettings)

	for i := 1; i <= 10; i++ {
		cmd := tr.Step(t0.Add(time.Duration(i)*turnSettings.RelayInterval), 18, turnSettings)
		if cmd != TurnNone {
			t.Fatalf("step %d after lockdown: got %v, want NONE", i, cmd)
		}
	}
	if tr.State() != TurnerIdle {
		t.Errorf("state: got %s, want IDLE", tr.State())
	}
}

func TestTurnerReleasedWhenLockdownStartsMidTurn(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tr := NewTurner()
	tr.Step(t0, 17, turnSettings)
	if cmd := tr.Step(t0.Add(turnSettings.RelayInterval), 17, turnSettings); cmd != TurnOn {
		t.Fatalf("expected ON, got %v", cmd)
	}

	if cmd := tr.Step(t0.Add(turnSettings.RelayInterval+time.Second), 18, turnSettings); cmd != TurnOff {
		t.Fatalf("expected OFF when lockdown begins mid-turn, got %v", cmd)
	}
	if cmd := tr.Step(t0.Add(2*turnSettings.RelayInterval), 18, turnSettings); cmd != TurnNone {
		t.Fatalf("expected NONE during lockdown, got %v", cmd)
	}
}

func TestTurnerNoBaselineDuringLockdown(t *testing.T) {
	tr := NewTurner()
	tr.Step(time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC), 18, turnSettings)
	if _, ok := tr.LastTurn(); ok {
		t.Error("expected no baseline recorded during lockdown")
	}
}

func TestTurnCommandString(t *testing.T) {
	tests := map[TurnCommand]string{TurnNone: "NONE", TurnOn: "ON", TurnOff: "OFF"}
	for cmd, want := range tests {
		if got := cmd.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", cmd, got, want)
		}
	}
}
