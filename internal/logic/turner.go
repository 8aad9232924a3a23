package logic

import "time"

// TurnerState is the egg-turn scheduler state.
type TurnerState string

const (
	TurnerIdle   TurnerState = "IDLE"
	TurnerActive TurnerState = "ACTIVE"
)

// TurnCommand is what the scheduler asks the turner relay to do on a tick.
type TurnCommand int

const (
	TurnNone TurnCommand = iota
	TurnOn
	TurnOff
)

func (c TurnCommand) String() string {
	switch c {
	case TurnOn:
		return "ON"
	case TurnOff:
		return "OFF"
	default:
		return "NONE"
	}
}

// TurnerSettings are the scheduler's timing parameters.
type TurnerSettings struct {
	// RelayInterval is the period between the starts of two turns.
	RelayInterval time.Duration
	// RollInterval is how long the turner stays energized within a period.
	RollInterval time.Duration
	LockdownDay  int
}

// Turner is the egg-turn scheduler. It is not safe for concurrent use;
// the control loop is its only caller.
type Turner struct {
	lastTurn time.Time
	hasTurn  bool
	state    TurnerState
}

// NewTurner returns a scheduler in IDLE with no recorded turn.
func NewTurner() *Turner {
	return &Turner{state: TurnerIdle}
}

// Step advances the scheduler to now and returns the command to issue.
//
// The first call records now as the baseline and issues nothing. lastTurn is
// only updated on IDLE→ACTIVE, so the next turn starts RelayInterval after the
// previous one started, not after it finished.
func (t *Turner) Step(now time.Time, day int, s TurnerSettings) TurnCommand {
	if day >= s.LockdownDay {
		if t.state == TurnerActive {
			t.state = TurnerIdle
			return TurnOff
		}
		return TurnNone
	}

	if !t.hasTurn {
		t.lastTurn = now
		t.hasTurn = true
		t.state = TurnerIdle
		return TurnNone
	}

	elapsed := now.Sub(t.lastTurn)
	switch t.state {
	case TurnerIdle:
		if elapsed >= s.RelayInterval {
			t.state = TurnerActive
			t.lastTurn = now
			return TurnOn
		}
	case TurnerActive:
		if elapsed >= s.RollInterval {
			t.state = TurnerIdle
			return TurnOff
		}
	}
	return TurnNone
}

// LastTurn returns when the current or most recent turn started.
// The boolean is false before the cold-start baseline is recorded.
func (t *Turner) LastTurn() (time.Time, bool) {
	return t.lastTurn, t.hasTurn
}

// State returns the scheduler state.
func (t *Turner) State() TurnerState {
	return t.state
}

// Engaged reports whether the turner is currently energized.
func (t *Turner) Engaged() bool {
	return t.state == TurnerActive
}
