// Command egg-incubator regulates an incubator's heat and humidity, turns
// the eggs on a schedule and logs observations for the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/egg-incubator/internal/config"
	"github.com/sweeney/egg-incubator/internal/control"
	"github.com/sweeney/egg-incubator/internal/gpio"
	"github.com/sweeney/egg-incubator/internal/log"
	"github.com/sweeney/egg-incubator/internal/logic"
	"github.com/sweeney/egg-incubator/internal/mqtt"
	"github.com/sweeney/egg-incubator/internal/sensor"
	"github.com/sweeney/egg-incubator/internal/settings"
	"github.com/sweeney/egg-incubator/internal/status"
	"github.com/sweeney/egg-incubator/internal/store"
	"github.com/sweeney/egg-incubator/internal/web"
)

// Sensor reads are retried this many times, sensorRetryDelay apart, before
// the tick counts as a failed read.
const (
	sensorAttempts   = 3
	sensorRetryDelay = 500 * time.Millisecond
)

type options struct {
	configPath string
	poll       time.Duration
	heartbeat  time.Duration
	httpAddr   string
	broker     string
	fake       bool
	i2cBus     string
	pins       gpio.Pins
	printState bool
	debug      bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "incubator.yaml", "Incubation config file (created with defaults if missing)")
	flag.DurationVar(&o.poll, "poll", 20*time.Second, "Control loop period")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP dashboard address (empty to disable)")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address, overrides mqtt_broker in the config file")
	flag.BoolVar(&o.fake, "fake", false, "Run against simulated sensor and relays")
	flag.StringVar(&o.i2cBus, "i2c-bus", "", `I²C bus for the AHT20 sensor ("" for the first bus)`)
	flag.IntVar(&o.pins.Heat, "pin-heat", gpio.DefaultPinHeat, "BCM pin number for the heat relay")
	flag.IntVar(&o.pins.Humidity, "pin-humidity", gpio.DefaultPinHumidity, "BCM pin number for the humidifier relay")
	flag.IntVar(&o.pins.Turner, "pin-turner", gpio.DefaultPinTurner, "BCM pin number for the egg turner relay")
	flag.BoolVar(&o.printState, "print-state", false, "Print current readings and relay states and exit")
	flag.BoolVar(&o.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	if err := log.Init(o.debug); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	go watchSignals(ctx, cancel)

	if err := run(ctx, o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// watchSignals cancels ctx on SIGINT or SIGTERM, recording the signal name
// as the shutdown reason.
func watchSignals(ctx context.Context, cancel context.CancelCauseFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		log.Infof("received %v, shutting down", s)
		cancel(control.ShutdownCause(signalName(s)))
	case <-ctx.Done():
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func run(ctx context.Context, o options) error {
	if o.poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", o.poll)
	}

	now := time.Now()
	cfg, err := loadConfig(o.configPath, now)
	if err != nil {
		return err
	}
	if o.broker != "" {
		cfg.MQTTBroker = o.broker
	}

	reader, actuator, err := openHardware(o)
	if err != nil {
		return err
	}
	defer reader.Close()
	defer actuator.Close()

	if o.printState {
		return printState(ctx, os.Stdout, reader, actuator)
	}

	obsLog, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer obsLog.Close()

	mgr := settings.New(cfg, obsLog, func(c config.File) error {
		return config.Save(o.configPath, c)
	})

	tracker := status.NewTracker(now, status.Daemon{
		PollMs:      o.poll.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      cfg.MQTTBroker,
		HTTPAddr:    o.httpAddr,
		Database:    cfg.Database,
	})
	tracker.SetConfig(cfg.Incubation)

	// A nil Publisher disables MQTT throughout.
	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTTBroker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTTBroker, cfg.MQTTClientID)
		defer p.Close()
		publisher, mqttStatus = p, p

		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      mqtt.EventStartup,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
		}
		if err := p.PublishSystem(startup); err != nil {
			log.Warnw("failed to publish startup event", "error", err)
		} else {
			log.Infow("published startup event")
		}
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, mgr, publisher)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Infow("http dashboard listening", "addr", o.httpAddr)
	}

	log.Infow("started",
		"poll", o.poll,
		"heartbeat", o.heartbeat,
		"start_date", cfg.StartDate.String(),
		"database", cfg.Database,
		"broker", cfg.MQTTBroker,
		"fake", o.fake)

	loop := control.New(control.Deps{
		Sensor:     reader,
		Actuator:   actuator,
		Settings:   mgr,
		Tracker:    tracker,
		Publisher:  publisher,
		MQTTStatus: mqttStatus,
		Heartbeat:  o.heartbeat,
	})

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	// Act on the first reading now rather than a poll period from now.
	loop.Step(ctx)
	return loop.Run(ctx, ticker.C)
}

// loadConfig reads the config file, writing the defaults out on first run so
// the batch start date survives a restart.
func loadConfig(path string, now time.Time) (config.File, error) {
	_, statErr := os.Stat(path)
	cfg, err := config.Load(path, now)
	if err != nil {
		return config.File{}, err
	}
	if errors.Is(statErr, os.ErrNotExist) {
		if err := config.Save(path, cfg); err != nil {
			return config.File{}, fmt.Errorf("write default config: %w", err)
		}
		log.Infow("wrote default config", "path", path, "start_date", cfg.StartDate.String())
	}
	return cfg, nil
}

func openHardware(o options) (sensor.Reader, gpio.Actuator, error) {
	if o.fake {
		r := sensor.NewFakeReader([]sensor.Sample{{TemperatureF: 99.5, HumidityPct: 50}})
		return r, gpio.NewFakeActuator(), nil
	}

	aht, err := sensor.NewAHT20(o.i2cBus)
	if err != nil {
		return nil, nil, fmt.Errorf("init sensor: %w", err)
	}
	act, err := gpio.NewRealActuator(o.pins)
	if err != nil {
		aht.Close()
		return nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	return sensor.Retry(aht, sensorAttempts, sensorRetryDelay), act, nil
}

// openStore opens the observation database; an empty path keeps the log in memory.
func openStore(ctx context.Context, path string) (store.Log, error) {
	if path == "" {
		log.Warnw("no database configured, observations are kept in memory only")
		return store.NewMemory(), nil
	}
	db, err := store.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func printState(ctx context.Context, w io.Writer, r sensor.Reader, a gpio.Actuator) error {
	reading, err := r.Read(ctx)
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	fmt.Fprintf(w, "Temperature: %.1f°F, Humidity: %.1f%%\n", reading.TemperatureF, reading.HumidityPct)

	for i, ch := range logic.Channels {
		s, err := a.Get(ch)
		if err != nil {
			return fmt.Errorf("read relay %s: %w", ch, err)
		}
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%s: %s", ch, s)
	}
	fmt.Fprintln(w)
	return nil
}
