package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/egg-incubator/internal/logic"
)

func testObservation() logic.Observation {
	return logic.Observation{
		ID:            uuid.MustParse("6f1c0e4a-8a3e-4c1f-9d2b-0a1b2c3d4e5f"),
		Timestamp:     time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		TemperatureF:  99.7,
		HumidityPct:   48.2,
		HeatRelay:     logic.StateOn,
		HumidityRelay: logic.StateOff,
		LastEggTurn:   time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
		DayInCycle:    4,
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(testObservation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	o := parsed.Observation
	if o.ID != "6f1c0e4a-8a3e-4c1f-9d2b-0a1b2c3d4e5f" {
		t.Errorf("unexpected id: %s", o.ID)
	}
	if o.Timestamp != "2026-03-09T14:00:00Z" {
		t.Errorf("unexpected timestamp: %s", o.Timestamp)
	}
	if o.TemperatureF != 99.7 || o.HumidityPct != 48.2 {
		t.Errorf("unexpected reading: %v / %v", o.TemperatureF, o.HumidityPct)
	}
	if o.HeatRelay != "ON" || o.HumidityRelay != "OFF" {
		t.Errorf("unexpected relays: heat=%s humidity=%s", o.HeatRelay, o.HumidityRelay)
	}
	if o.LastEggTurn != "2026-03-09T12:00:00Z" {
		t.Errorf("unexpected last turn: %s", o.LastEggTurn)
	}
	if o.DayInCycle != 4 {
		t.Errorf("unexpected day: %d", o.DayInCycle)
	}
}

func TestFormatPayloadOmitsMissingTurn(t *testing.T) {
	obs := testObservation()
	obs.LastEggTurn = time.Time{}

	payload, err := FormatPayload(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["observation"]["last_egg_turn"]; ok {
		t.Error("last_egg_turn should be omitted when no turn was recorded")
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	obs := testObservation()
	obs.Timestamp = time.Date(2026, 3, 9, 9, 0, 0, 0, loc)

	payload, _ := FormatPayload(obs)
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Observation.Timestamp != "2026-03-09T14:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Observation.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "incubator/observations" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "incubator/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			name:  "shutdown",
			event: SystemEvent{Timestamp: time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC), Event: EventShutdown, Reason: "SIGTERM"},
			want:  `{"system":{"timestamp":"2026-03-09T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			name:  "reconnected",
			event: SystemEvent{Timestamp: time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC), Event: EventReconnected},
			want:  `{"system":{"timestamp":"2026-03-09T08:30:00Z","event":"RECONNECTED"}}`,
		},
		{
			name: "fault",
			event: SystemEvent{
				Timestamp: time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
				Event:     EventFault,
				Reason:    "actuator",
				Detail:    "heat commanded ON, reads OFF",
			},
			want: `{"system":{"timestamp":"2026-03-09T08:30:00Z","event":"FAULT","reason":"actuator","detail":"heat commanded ON, reads OFF"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.want)
			}
		})
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestWillPayload(t *testing.T) {
	want := `{"system":{"event":"LOST","reason":"connection lost"}}`
	if got := string(willPayload()); got != want {
		t.Errorf("unexpected will payload:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	pub := NewFakePublisher()
	obs := testObservation()

	if err := pub.PublishObservation(obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.PublishSystem(SystemEvent{Event: EventStartup, Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.PublishSystem(SystemEvent{Event: EventHeartbeat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := pub.Observations(); len(got) != 1 || got[0].ID != obs.ID {
		t.Errorf("observations not recorded: %+v", got)
	}
	if len(pub.Payloads()) != 1 {
		t.Errorf("expected 1 payload, got %d", len(pub.Payloads()))
	}
	events := pub.SystemEvents()
	if len(events) != 2 || events[0].Event != EventStartup || events[1].Event != EventHeartbeat {
		t.Errorf("system events out of order: %+v", events)
	}
	if !events[0].Retained {
		t.Error("retained flag not recorded")
	}
	if len(pub.EventsNamed(EventHeartbeat)) != 1 {
		t.Error("EventsNamed should find the heartbeat")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	pub := NewFakePublisher()
	boom := errors.New("broker down")

	pub.SetPublishError(boom)
	if err := pub.PublishObservation(testObservation()); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	pub.SetPublishSystemError(boom)
	if err := pub.PublishSystem(SystemEvent{Event: EventFault}); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	if len(pub.Observations()) != 0 || len(pub.SystemEvents()) != 0 {
		t.Error("failed publishes should not be recorded")
	}

	pub.SetPublishError(nil)
	if err := pub.PublishObservation(testObservation()); err != nil {
		t.Errorf("expected success after clearing error, got %v", err)
	}
}

func TestFakePublisherResetAndClose(t *testing.T) {
	pub := NewFakePublisher()
	_ = pub.PublishObservation(testObservation())
	_ = pub.PublishSystem(SystemEvent{Event: EventStartup})

	pub.Reset()
	if len(pub.Observations()) != 0 || len(pub.SystemPayloads()) != 0 {
		t.Error("Reset should clear recorded messages")
	}

	if !pub.IsConnected() {
		t.Error("new fake should report connected")
	}
	pub.SetConnected(false)
	if pub.IsConnected() {
		t.Error("SetConnected(false) not honoured")
	}

	if pub.Closed() {
		t.Error("should not be closed yet")
	}
	_ = pub.Close()
	if !pub.Closed() {
		t.Error("Close not recorded")
	}
}
