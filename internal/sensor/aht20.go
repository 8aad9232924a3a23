package sensor

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/egg-incubator/internal/logic"
)

// AHT20Addr is the fixed I²C address of the AHT10/AHT20 family.
const AHT20Addr = 0x38

const (
	ahtCmdInit    = 0xBE
	ahtCmdTrigger = 0xAC
	ahtCmdStatus  = 0x71

	ahtStatusBusy       = 0x80
	ahtStatusCalibrated = 0x08

	ahtMeasureTime = 80 * time.Millisecond
	ahtBusyPolls   = 5
)

// AHT20 reads an AHT20 temperature/humidity sensor over I²C.
type AHT20 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
	now func() time.Time
}

// NewAHT20 opens the named I²C bus ("" selects the first available bus) and
// calibrates the sensor.
func NewAHT20(busName string) (*AHT20, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	a := &AHT20{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: AHT20Addr},
		now: time.Now,
	}
	if err := a.calibrate(); err != nil {
		bus.Close()
		return nil, err
	}
	return a, nil
}

func (a *AHT20) calibrate() error {
	status := make([]byte, 1)
	if err := a.dev.Tx([]byte{ahtCmdStatus}, status); err != nil {
		return fmt.Errorf("read aht20 status: %w", err)
	}
	if status[0]&ahtStatusCalibrated != 0 {
		return nil
	}
	if err := a.dev.Tx([]byte{ahtCmdInit, 0x08, 0x00}, nil); err != nil {
		return fmt.Errorf("calibrate aht20: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Read triggers a measurement and waits for it to complete.
func (a *AHT20) Read(ctx context.Context) (logic.Reading, error) {
	if err := a.dev.Tx([]byte{ahtCmdTrigger, 0x33, 0x00}, nil); err != nil {
		return logic.Reading{}, failure("trigger measurement: %v", err)
	}

	buf := make([]byte, 6)
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return logic.Reading{}, failure("%v", ctx.Err())
		case <-time.After(ahtMeasureTime):
		}
		if err := a.dev.Tx(nil, buf); err != nil {
			return logic.Reading{}, failure("read measurement: %v", err)
		}
		if buf[0]&ahtStatusBusy == 0 {
			break
		}
		if i == ahtBusyPolls-1 {
			return logic.Reading{}, failure("sensor busy after %d polls", ahtBusyPolls)
		}
	}

	celsius, humidity := decodeAHT20(buf)
	return logic.Reading{
		TemperatureF: CelsiusToFahrenheit(celsius),
		HumidityPct:  round1(humidity),
		Time:         a.now(),
	}, nil
}

// Close releases the I²C bus.
func (a *AHT20) Close() error {
	return a.bus.Close()
}

// decodeAHT20 converts a 6-byte measurement frame to °C and %RH.
// Humidity and temperature are packed as two 20-bit values after the status byte.
func decodeAHT20(b []byte) (celsius, humidity float64) {
	rawH := uint32(b[1])<<12 | uint32(b[2])<<4 | uint32(b[3])>>4
	rawT := uint32(b[3]&0x0F)<<16 | uint32(b[4])<<8 | uint32(b[5])
	humidity = float64(rawH) * 100 / (1 << 20)
	celsius = float64(rawT)*200/(1<<20) - 50
	return celsius, humidity
}
