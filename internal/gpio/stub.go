//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/sensor-hub/internal/hub"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// PIR is not available on non-Linux platforms.
type PIR struct{}

// NewPIR returns a PIR whose Start always fails.
func NewPIR(chip string, offset int, debounce time.Duration) *PIR {
	return &PIR{}
}

func (p *PIR) Start(handler func()) error { return errUnsupported }

func (p *PIR) Close() error { return nil }

// HCSR04 is not available on non-Linux platforms.
type HCSR04 struct{}

// NewHCSR04 returns an error on non-Linux platforms.
func NewHCSR04(chip string, trigger, echo int) (*HCSR04, error) {
	return nil, errUnsupported
}

func (h *HCSR04) Measure() (uint32, error) { return 0, errUnsupported }

func (h *HCSR04) Close() error { return nil }

// DHT11 is not available on non-Linux platforms.
type DHT11 struct{}

// NewDHT11 returns a DHT11 whose reads always fail.
func NewDHT11(chip string, offset int) *DHT11 {
	return &DHT11{}
}

func (d *DHT11) Read() (hub.Climate, error) { return hub.Climate{}, errUnsupported }
