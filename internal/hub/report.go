package hub

import (
	"fmt"
	"time"
)

// ClimateErrorMarker replaces the temperature and humidity fields when the
// climate read fails.
const ClimateErrorMarker = "DHT11 sensor error!"

// Reading is one cycle's worth of sensor data.
type Reading struct {
	DistanceRaw uint32
	DistanceCM  uint32
	Climate     Climate
	ClimateErr  error
}

// ClimateOK reports whether the climate part of the reading is valid.
func (r Reading) ClimateOK() bool {
	return r.ClimateErr == nil
}

// Report is what one cycle emitted.
type Report struct {
	Time    time.Time
	Reading Reading
	Motion  bool
	Line    string
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// FormatReport renders the report line sent to the network and the console.
func FormatReport(r Reading, motion bool) string {
	if !r.ClimateOK() {
		return fmt.Sprintf("Distance: %d cm, %s, Motion: %s\n",
			r.DistanceCM, ClimateErrorMarker, yesNo(motion))
	}
	c := r.Climate
	return fmt.Sprintf("Distance: %d cm, Temp: %d.%d C, Humidity: %d.%d %%, Motion: %s\n",
		r.DistanceCM, c.TemperatureInt, c.TemperatureDec, c.HumidityInt, c.HumidityDec, yesNo(motion))
}
