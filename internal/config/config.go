// Package config loads, validates and saves the incubator's key-value
// configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the on-disk format of start_date.
const DateLayout = "2006-01-02"

// Incubation holds the parameters the control loop reads on every tick.
type Incubation struct {
	StartDate            Date    `yaml:"start_date"`
	LogInterval          Seconds `yaml:"log_interval"`
	RelayInterval        Seconds `yaml:"relay_interval"`
	RollInterval         Seconds `yaml:"roll_interval"`
	TemperatureThreshold float64 `yaml:"temperature_threshold"`
	HumidityThreshold    float64 `yaml:"humidity_threshold"`
	LockdownHumidity     float64 `yaml:"lockdown_humidity"`
	LockdownDay          int     `yaml:"lockdown_day"`
	HatchDay             int     `yaml:"hatch_day"`
}

// File is the full configuration document. Incubation fields are inlined so
// the file stays a flat key-value map.
type File struct {
	Incubation `yaml:",inline"`

	// Persistence
	Database string `yaml:"database"`

	// MQTT observability sink; empty broker disables it.
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
}

// Defaults returns a configuration for a batch starting today.
func Defaults(now time.Time) File {
	return File{
		Incubation: Incubation{
			StartDate:            DateOf(now),
			LogInterval:          Seconds(10 * time.Minute),
			RelayInterval:        Seconds(4 * time.Hour),
			RollInterval:         Seconds(2 * time.Minute),
			TemperatureThreshold: 100,
			HumidityThreshold:    50,
			LockdownHumidity:     75,
			LockdownDay:          18,
			HatchDay:             21,
		},
		Database:     "incubator.db",
		MQTTClientID: "egg-incubator",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string, now time.Time) (File, error) {
	cfg := Defaults(now)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
func Save(path string, cfg File) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Validate checks every field of the configuration.
func (f File) Validate() error {
	return f.Incubation.Validate()
}

// Validate checks the incubation parameters.
func (c Incubation) Validate() error {
	switch {
	case c.StartDate.IsZero():
		return &ValidationError{Field: "start_date", Reason: "must be set"}
	case c.LogInterval <= 0:
		return &ValidationError{Field: "log_interval", Reason: "must be positive"}
	case c.RelayInterval <= 0:
		return &ValidationError{Field: "relay_interval", Reason: "must be positive"}
	case c.RollInterval <= 0:
		return &ValidationError{Field: "roll_interval", Reason: "must be positive"}
	case c.RollInterval >= c.RelayInterval:
		return &ValidationError{Field: "roll_interval", Reason: "must be shorter than relay_interval"}
	case c.HumidityThreshold < 0 || c.HumidityThreshold > 100:
		return &ValidationError{Field: "humidity_threshold", Reason: "must be between 0 and 100"}
	case c.LockdownHumidity < 0 || c.LockdownHumidity > 100:
		return &ValidationError{Field: "lockdown_humidity", Reason: "must be between 0 and 100"}
	case c.LockdownDay <= 0 || c.LockdownDay > c.HatchDay:
		return &ValidationError{Field: "lockdown_day", Reason: "must be between 1 and hatch_day"}
	}
	return nil
}
