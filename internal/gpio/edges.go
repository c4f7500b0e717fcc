package gpio

import (
	"time"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// Edge is one level transition with its kernel timestamp.
type Edge struct {
	Rising bool
	At     time.Duration
}

// EchoCount converts the HC-SR04 echo pulse bounded by rise and fall into the
// raw timing count, in microseconds. A fall before the rise yields 0.
func EchoCount(rise, fall time.Duration) uint32 {
	if fall <= rise {
		return 0
	}
	return uint32((fall - rise).Microseconds())
}

// dht11OneThreshold separates a 0 bit (26-28µs high) from a 1 bit (70µs high).
const dht11OneThreshold = 50 * time.Microsecond

const dht11Bits = 40

// highPulses pairs each rising edge with the next falling edge and returns
// the widths of the high periods.
func highPulses(edges []Edge) []time.Duration {
	var widths []time.Duration
	var rise time.Duration
	rising := false
	for _, e := range edges {
		switch {
		case e.Rising:
			rise = e.At
			rising = true
		case rising:
			widths = append(widths, e.At-rise)
			rising = false
		}
	}
	return widths
}

// DecodeDHT11 decodes a DHT11 frame from the edges seen on the data line
// after the start signal. The last 40 high pulses are the data bits; any
// earlier ones belong to the sensor's response preamble.
func DecodeDHT11(edges []Edge) (hub.Climate, error) {
	if len(edges) == 0 {
		return hub.Climate{}, ErrNoResponse
	}
	widths := highPulses(edges)
	if len(widths) < dht11Bits {
		return hub.Climate{}, ErrIncomplete
	}
	widths = widths[len(widths)-dht11Bits:]

	var frame [5]byte
	for i, w := range widths {
		frame[i/8] <<= 1
		if w > dht11OneThreshold {
			frame[i/8] |= 1
		}
	}

	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return hub.Climate{}, ErrChecksum
	}

	return hub.Climate{
		HumidityInt:    frame[0],
		HumidityDec:    frame[1],
		TemperatureInt: frame[2],
		TemperatureDec: frame[3],
	}, nil
}
