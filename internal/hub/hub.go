// Package hub contains the event and timing core of the sensor hub: the console
// line assembler, the motion latch and the periodic reporting cycle.
//
// Everything the core touches outside itself is a capability interface so the
// orchestration runs unchanged against real drivers or test fakes.
package hub

import (
	"context"
	"io"
	"time"
)

// DistanceSensor takes one blocking ranging measurement and returns the raw
// echo timing count.
type DistanceSensor interface {
	Measure() (uint32, error)
}

// ClimateSensor takes one blocking humidity/temperature measurement.
// A non-nil error means the reading failed and Climate must be ignored.
type ClimateSensor interface {
	Read() (Climate, error)
}

// Display shows a single integer.
type Display interface {
	ShowInt(v int)
}

// Transmitter pushes bytes to a network peer.
type Transmitter interface {
	Transmit(p []byte) error
}

// Console is the serial console's transmit side.
type Console interface {
	io.ByteWriter
	io.StringWriter
}

// Waiter blocks for d, returning early only if ctx is done.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Climate holds one humidity/temperature reading split into whole and
// tenth parts, as reported by DHT11-class sensors.
type Climate struct {
	HumidityInt    uint8
	HumidityDec    uint8
	TemperatureInt uint8
	TemperatureDec uint8
}

// Temperature returns the temperature in °C.
func (c Climate) Temperature() float64 {
	return float64(c.TemperatureInt) + float64(c.TemperatureDec)/10
}

// Humidity returns the relative humidity in percent.
func (c Climate) Humidity() float64 {
	return float64(c.HumidityInt) + float64(c.HumidityDec)/10
}

// Transmitters fans a payload out to every peer. All peers are tried; the
// first error is returned.
type Transmitters []Transmitter

func (ts Transmitters) Transmit(p []byte) error {
	var first error
	for _, t := range ts {
		if err := t.Transmit(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SleepWaiter waits on a timer.
type SleepWaiter struct{}

func (SleepWaiter) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
