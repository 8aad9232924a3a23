package logic

import (
	"errors"
	"time"
)

// CycleDays is the length of the chicken incubation cycle.
const CycleDays = 21

const day = 24 * time.Hour

// ErrStartInFuture is returned by Cycle when now precedes the start date.
var ErrStartInFuture = errors.New("start date is in the future")

// Cycle computes the day in the incubation cycle.
// Elapsed days are counted on the wall clock of start's location, so a DST
// change does not shift the day boundary away from local midnight. They are
// truncated, then wrapped modulo CycleDays. If now is before start, the day
// is clamped to 0 and ErrStartInFuture is returned.
func Cycle(now, start time.Time, lockdownDay int) (CycleState, error) {
	if now.Before(start) {
		return CycleState{Lockdown: lockdownDay <= 0}, ErrStartInFuture
	}

	elapsed := int(wallClock(now.In(start.Location())).Sub(wallClock(start)) / day)
	if elapsed < 0 {
		// Inside the repeated hour of a fall-back on the start day.
		elapsed = 0
	}
	d := elapsed % CycleDays
	return CycleState{
		Day:       d,
		Lockdown:  d >= lockdownDay,
		PostHatch: elapsed >= CycleDays,
	}, nil
}

// wallClock re-reads t's local date and time as UTC, dropping the zone offset.
func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
}

// Schedule returns the lockdown and hatch dates for a batch started at start.
func Schedule(start time.Time, lockdownDay, hatchDay int) (lockdown, hatch time.Time) {
	return start.AddDate(0, 0, lockdownDay), start.AddDate(0, 0, hatchDay)
}
