// Package gpio drives the sensor hub's GPIO-attached sensors: the PIR motion
// sensor, the HC-SR04 ranging module and the DHT11 humidity/temperature sensor.
// The real implementations use the Linux GPIO character device.
// Fakes allow testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"io"
)

// Consumer labels every line this package requests.
const Consumer = "sensor-hub"

// DefaultChip is the Raspberry Pi header's GPIO chip.
const DefaultChip = "gpiochip0"

// Pin defaults (BCM numbering)
const (
	DefaultPinPIR     = 17
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
	DefaultPinDHT     = 4
)

// Sensor errors.
var (
	ErrNoResponse = errors.New("gpio: sensor did not respond")
	ErrIncomplete = errors.New("gpio: incomplete frame")
	ErrChecksum   = errors.New("gpio: checksum mismatch")
	ErrTimeout    = errors.New("gpio: timeout")
)

// MotionSource delivers one callback per detected motion edge.
type MotionSource interface {
	// Start registers handler and begins watching. handler runs on the
	// source's own goroutine and must not block for long.
	Start(handler func()) error

	// Close stops watching and releases the line.
	Close() error
}

// releaseLine closes a requested line, naming it in the error.
func releaseLine(line io.Closer, name string) error {
	if err := line.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}
