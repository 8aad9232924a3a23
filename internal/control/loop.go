// Package control runs the incubator's control loop: it reads the sensor,
// regulates heat and humidity, turns the eggs and logs observations.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/egg-incubator/internal/gpio"
	"github.com/sweeney/egg-incubator/internal/log"
	"github.com/sweeney/egg-incubator/internal/logic"
	"github.com/sweeney/egg-incubator/internal/mqtt"
	"github.com/sweeney/egg-incubator/internal/sensor"
	"github.com/sweeney/egg-incubator/internal/settings"
	"github.com/sweeney/egg-incubator/internal/status"
)

// Fault reasons carried in FAULT system events.
const (
	FaultActuator    = "actuator"
	FaultPersistence = "persistence"
	FaultSensor      = "sensor"
)

// Deps are the collaborators of a Loop. Publisher and MQTTStatus may be nil.
type Deps struct {
	Sensor     sensor.Reader
	Actuator   gpio.Actuator
	Settings   *settings.Manager
	Tracker    *status.Tracker
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus

	// Heartbeat is the HEARTBEAT event interval; 0 disables it.
	Heartbeat time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Loop is the single writer of relay state, turner state and the observation log.
// It is not safe for concurrent use.
type Loop struct {
	Deps

	turner  *logic.Turner
	relays  logic.ActuatorStatus
	started bool

	epoch         uint64
	lastLogged    time.Time
	lastHeartbeat time.Time
	cycleErr      string
	sensorDown    bool
}

// New creates a Loop with every relay assumed OFF.
func New(d Deps) *Loop {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Loop{
		Deps:   d,
		turner: logic.NewTurner(),
		relays: logic.DefaultActuatorStatus,
	}
}

type shutdownCause struct{ reason string }

func (c shutdownCause) Error() string { return "shutdown: " + c.reason }

// ShutdownCause wraps a shutdown reason (e.g. "SIGTERM") for use with
// context.WithCancelCause. Run reports it in the SHUTDOWN event.
func ShutdownCause(reason string) error {
	return shutdownCause{reason: reason}
}

// Run executes one Step per tick until ctx is cancelled, then switches every
// relay off and publishes SHUTDOWN. Only cancellation ends the loop.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	l.start(ctx)

	for {
		select {
		case <-ctx.Done():
			l.shutdown(ctx)
			return nil
		case <-tick:
			l.Step(ctx)
		}
	}
}

// start seeds the log gate from the persisted log so a restart does not
// write an extra observation.
func (l *Loop) start(ctx context.Context) {
	if l.started {
		return
	}
	l.started = true

	now := l.Now()
	l.lastHeartbeat = now
	l.epoch = l.Settings.Current().Epoch

	obs, found, err := l.Settings.Latest(ctx)
	switch {
	case err != nil:
		log.Warnw("reading latest observation failed", "error", err)
		l.Tracker.CountPersistenceError()
	case found:
		l.lastLogged = obs.Timestamp
		log.Infow("resuming observation log", "last", obs.Timestamp, "day", obs.DayInCycle)
	}
	l.Tracker.SetActuators(l.relays, l.turner.Engaged(), time.Time{})
}

// Step runs a single control iteration at the current time.
func (l *Loop) Step(ctx context.Context) {
	l.start(ctx)
	now := l.Now()

	snap := l.Settings.Current()
	cfg := snap.Config.Incubation
	if snap.Epoch != l.epoch {
		log.Infow("batch restarted, observation log cleared", "start_date", cfg.StartDate.String())
		l.epoch = snap.Epoch
		l.lastLogged = time.Time{}
	}

	reading, readErr := l.Sensor.Read(ctx)
	if readErr != nil && ctx.Err() != nil {
		// Interrupted by shutdown, not a sensor fault.
		return
	}

	cycle, cycleErr := logic.Cycle(now, cfg.StartDate.Time, cfg.LockdownDay)
	l.noteCycleError(cycleErr)
	l.Tracker.SetCycle(cycle, cycleErr)

	if readErr != nil {
		l.noteSensorError(now, readErr)
	} else {
		if l.sensorDown {
			log.Infow("sensor recovered")
			l.sensorDown = false
		}
		reading.Time = now
		l.Tracker.SetReading(reading)
		target := cycle.HumidityTarget(cfg.HumidityThreshold, cfg.LockdownHumidity)
		l.regulate(now, reading, cfg.TemperatureThreshold, target)
	}

	l.turn(now, cycle.Day, logic.TurnerSettings{
		RelayInterval: cfg.RelayInterval.Duration(),
		RollInterval:  cfg.RollInterval.Duration(),
		LockdownDay:   cfg.LockdownDay,
	})

	lastTurn, _ := l.turner.LastTurn()
	if readErr == nil && logic.ShouldLog(l.lastLogged, now, cfg.LogInterval.Duration()) {
		l.record(ctx, now, snap.Epoch, logic.NewObservation(reading, l.relays, lastTurn, cycle.Day))
	}

	l.Tracker.SetActuators(l.relays, l.turner.Engaged(), lastTurn)
	if l.MQTTStatus != nil {
		l.Tracker.SetMQTTConnected(l.MQTTStatus.IsConnected())
	}
	l.heartbeat(now)
}

func (l *Loop) noteCycleError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg != l.cycleErr && msg != "" {
		log.Warnw("cycle day unavailable, using day 0", "error", err)
	}
	l.cycleErr = msg
}

func (l *Loop) noteSensorError(now time.Time, err error) {
	log.Warnw("sensor read failed, skipping regulation", "error", err)
	l.Tracker.SetSensorError(err)
	if !l.sensorDown {
		l.sensorDown = true
		l.fault(now, FaultSensor, err.Error())
	}
}

func (l *Loop) regulate(now time.Time, r logic.Reading, tempThreshold, humidityThreshold float64) {
	next := logic.Regulate(r, tempThreshold, humidityThreshold, l.relays)
	if next.Heat != l.relays.Heat {
		log.Infow("heat relay", "state", next.Heat, "temperature_f", r.TemperatureF, "threshold", tempThreshold)
		l.apply(now, logic.ChannelHeat, next.Heat)
	}
	if next.Humidity != l.relays.Humidity {
		log.Infow("humidity relay", "state", next.Humidity, "humidity_pct", r.HumidityPct, "threshold", humidityThreshold)
		l.apply(now, logic.ChannelHumidity, next.Humidity)
	}
	// Proceed on the commanded value even if the hardware disagreed.
	l.relays = next
}

func (l *Loop) turn(now time.Time, day int, s logic.TurnerSettings) {
	switch l.turner.Step(now, day, s) {
	case logic.TurnOn:
		log.Infow("turning eggs", "day", day)
		l.apply(now, logic.ChannelTurner, logic.StateOn)
	case logic.TurnOff:
		log.Infow("egg turn complete", "day", day)
		l.apply(now, logic.ChannelTurner, logic.StateOff)
	}
}

// apply commands a relay and checks the reported state. Failures are faults,
// never fatal.
func (l *Loop) apply(now time.Time, ch logic.Channel, want logic.State) {
	if err := l.Actuator.Set(ch, want); err != nil {
		l.mismatch(now, ch, fmt.Sprintf("%s: set %s failed: %v", ch, want, err))
		return
	}
	got, err := l.Actuator.Get(ch)
	if err != nil {
		l.mismatch(now, ch, fmt.Sprintf("%s: read back failed: %v", ch, err))
		return
	}
	if got != want {
		l.mismatch(now, ch, fmt.Sprintf("%s commanded %s, reads %s", ch, want, got))
	}
}

func (l *Loop) mismatch(now time.Time, ch logic.Channel, detail string) {
	log.Warnw("actuator mismatch", "channel", ch, "detail", detail)
	l.Tracker.CountActuatorMismatch()
	l.fault(now, FaultActuator, detail)
}

func (l *Loop) record(ctx context.Context, now time.Time, epoch uint64, obs logic.Observation) {
	err := l.Settings.Append(ctx, epoch, obs)
	switch {
	case err == nil:
		l.lastLogged = now
		log.Debugw("observation logged", "temperature_f", obs.TemperatureF, "humidity_pct", obs.HumidityPct, "day", obs.DayInCycle)
		if l.Publisher != nil {
			if err := l.Publisher.PublishObservation(obs); err != nil {
				log.Warnw("publish observation failed", "error", err)
			}
		}
	case errors.Is(err, settings.ErrStaleEpoch):
		// The batch was restarted mid-tick; the next tick logs against the new one.
		log.Debugw("dropping observation from previous batch")
	default:
		log.Warnw("observation not persisted", "error", err)
		l.Tracker.CountPersistenceError()
		l.fault(now, FaultPersistence, err.Error())
	}
}

func (l *Loop) fault(now time.Time, reason, detail string) {
	if l.Publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{Timestamp: now, Event: mqtt.EventFault, Reason: reason, Detail: detail}
	if err := l.Publisher.PublishSystem(ev); err != nil {
		log.Warnw("publish fault failed", "error", err)
	}
}

func (l *Loop) heartbeat(now time.Time) {
	if l.Heartbeat <= 0 || now.Sub(l.lastHeartbeat) < l.Heartbeat {
		return
	}
	l.lastHeartbeat = now

	snap := l.Tracker.Snapshot()
	log.Infow("heartbeat",
		"day", snap.Cycle.Day,
		"heat", snap.Actuators.Heat,
		"humidity", snap.Actuators.Humidity,
		"sensor_failures", snap.Faults.SensorFailures,
		"persistence_errors", snap.Faults.PersistenceErrors)

	if l.Publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
	}
	if err := l.Publisher.PublishSystem(ev); err != nil {
		log.Warnw("heartbeat publish failed", "error", err)
	}
}

// shutdown releases every relay and announces the shutdown.
func (l *Loop) shutdown(ctx context.Context) {
	reason := "CANCELLED"
	var sc shutdownCause
	if errors.As(context.Cause(ctx), &sc) {
		reason = sc.reason
	}
	log.Infow("shutting down, switching relays off", "reason", reason)

	for _, ch := range logic.Channels {
		if err := l.Actuator.Set(ch, logic.StateOff); err != nil {
			log.Errorw("relay off failed", "channel", ch, "error", err)
		}
	}
	l.relays = logic.DefaultActuatorStatus
	lastTurn, _ := l.turner.LastTurn()
	l.Tracker.SetActuators(l.relays, false, lastTurn)

	if l.Publisher == nil {
		return
	}
	if l.MQTTStatus != nil {
		l.Tracker.SetMQTTConnected(l.MQTTStatus.IsConnected())
	}
	snap := l.Tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  l.Now(),
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	}
	if err := l.Publisher.PublishSystem(ev); err != nil {
		log.Warnw("failed to publish shutdown event", "error", err)
	} else {
		log.Infow("published shutdown event")
	}
}
