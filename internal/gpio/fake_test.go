package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/egg-incubator/internal/logic"
)

func TestFakeActuatorStartsOff(t *testing.T) {
	f := NewFakeActuator()
	for _, ch := range logic.Channels {
		s, err := f.Get(ch)
		if err != nil {
			t.Fatalf("Get(%s): unexpected error: %v", ch, err)
		}
		if s != logic.StateOff {
			t.Errorf("Get(%s): got %s, want OFF", ch, s)
		}
	}
}

func TestFakeActuatorRecordsCommands(t *testing.T) {
	f := NewFakeActuator()

	if err := f.Set(logic.ChannelHeat, logic.StateOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Set(logic.ChannelTurner, logic.StateOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Set(logic.ChannelTurner, logic.StateOff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(f.Commands()); got != 3 {
		t.Fatalf("expected 3 commands, got %d", got)
	}
	turner := f.CommandsFor(logic.ChannelTurner)
	if len(turner) != 2 || turner[0] != logic.StateOn || turner[1] != logic.StateOff {
		t.Errorf("turner commands: got %v, want [ON OFF]", turner)
	}
	if s, _ := f.Get(logic.ChannelHeat); s != logic.StateOn {
		t.Errorf("heat: got %s, want ON", s)
	}
}

func TestFakeActuatorUnknownChannel(t *testing.T) {
	f := NewFakeActuator()
	if err := f.Set("fan", logic.StateOn); err == nil {
		t.Error("expected error for unknown channel")
	}
	if _, err := f.Get("fan"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestFakeActuatorStuckChannel(t *testing.T) {
	f := NewFakeActuator()
	f.Stick(logic.ChannelHeat, logic.StateOff)

	f.Set(logic.ChannelHeat, logic.StateOn)
	if s, _ := f.Get(logic.ChannelHeat); s != logic.StateOff {
		t.Errorf("stuck heat: got %s, want OFF", s)
	}
	if f.State(logic.ChannelHeat) != logic.StateOn {
		t.Error("expected commanded state to be recorded as ON")
	}
}

func TestFakeActuatorSetError(t *testing.T) {
	f := NewFakeActuator()
	f.SetError(errors.New("simulated error"))

	err := f.Set(logic.ChannelHeat, logic.StateOn)
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if len(f.Commands()) != 0 {
		t.Error("failed Set should not be recorded")
	}
}

func TestFakeActuatorClose(t *testing.T) {
	f := NewFakeActuator()
	f.Set(logic.ChannelHumidity, logic.StateOn)

	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed() {
		t.Error("should be closed after Close()")
	}
	if s, _ := f.Get(logic.ChannelHumidity); s != logic.StateOff {
		t.Errorf("humidity after close: got %s, want OFF", s)
	}
}

func TestRawValueIsActiveLow(t *testing.T) {
	if rawValue(logic.StateOn) != 0 {
		t.Error("ON should drive the line low")
	}
	if rawValue(logic.StateOff) != 1 {
		t.Error("OFF should drive the line high")
	}
	if stateFromRaw(0) != logic.StateOn || stateFromRaw(1) != logic.StateOff {
		t.Error("stateFromRaw should invert raw values")
	}
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()
	for ch, want := range map[logic.Channel]int{
		logic.ChannelHeat:     21,
		logic.ChannelHumidity: 20,
		logic.ChannelTurner:   19,
	} {
		got, ok := p.pin(ch)
		if !ok || got != want {
			t.Errorf("pin(%s): got (%d, %v), want %d", ch, got, ok, want)
		}
	}
}
