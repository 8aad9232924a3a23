package config

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidationError reports an invalid configuration field or value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Seconds is a duration stored in the file as a whole number of seconds.
type Seconds time.Duration

// Duration converts to time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// MarshalYAML writes whole seconds as an integer and anything finer as a
// float, so a saved file reloads to the same duration.
func (s Seconds) MarshalYAML() (interface{}, error) {
	d := time.Duration(s)
	if d%time.Second == 0 {
		return int64(d / time.Second), nil
	}
	return d.Seconds(), nil
}

func (s *Seconds) UnmarshalYAML(n *yaml.Node) error {
	var v float64
	if err := n.Decode(&v); err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("seconds: %q is not a number", n.Value)
	}
	*s = secondsOf(v)
	return nil
}

// maxSeconds keeps the nanosecond conversion inside time.Duration.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// secondsOf converts a number of seconds, rounding to the nearest nanosecond.
func secondsOf(v float64) Seconds {
	return Seconds(time.Duration(math.Round(v * float64(time.Second))))
}

// Date is a calendar date in local time, stored as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf truncates t to local midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// ParseDate parses a YYYY-MM-DD date in the local time zone.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	p, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = p
	return nil
}

// Field names accepted by Apply.
const (
	FieldTemperatureThreshold = "temperature_threshold"
	FieldHumidityThreshold    = "humidity_threshold"
	FieldLogInterval          = "log_interval"
	FieldRelayInterval        = "relay_interval"
	FieldRollInterval         = "roll_interval"
	FieldStartDate            = "start_date"
)

// Apply returns a copy of c with one field updated from its string form.
// Only the dashboard-editable fields are accepted; the result is validated
// as a whole so c is never partially modified.
func Apply(c Incubation, field, value string) (Incubation, error) {
	next := c
	switch field {
	case FieldTemperatureThreshold:
		v, err := parseFloat(field, value)
		if err != nil {
			return c, err
		}
		next.TemperatureThreshold = v
	case FieldHumidityThreshold:
		v, err := parseFloat(field, value)
		if err != nil {
			return c, err
		}
		next.HumidityThreshold = v
	case FieldLogInterval, FieldRelayInterval, FieldRollInterval:
		v, err := parseSeconds(field, value)
		if err != nil {
			return c, err
		}
		switch field {
		case FieldLogInterval:
			next.LogInterval = v
		case FieldRelayInterval:
			next.RelayInterval = v
		default:
			next.RollInterval = v
		}
	case FieldStartDate:
		d, err := ParseDate(value)
		if err != nil {
			return c, &ValidationError{Field: field, Value: value, Reason: "expected YYYY-MM-DD"}
		}
		next.StartDate = d
	default:
		return c, &ValidationError{Field: field, Value: value, Reason: "not an editable field"}
	}

	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

func parseFloat(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Value: value, Reason: "expected a number"}
	}
	return v, nil
}

func parseSeconds(field, value string) (Seconds, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Value: value, Reason: "expected a number of seconds"}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: field, Value: value, Reason: "must be positive"}
	}
	if v > maxSeconds {
		return 0, &ValidationError{Field: field, Value: value, Reason: "too large"}
	}
	return secondsOf(v), nil
}
