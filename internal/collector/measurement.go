// Package collector receives report lines from sensor hubs over TCP,
// extracts the measurements they carry and validates them.
package collector

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var fieldPattern = regexp.MustCompile(`(Distance|Temp|Humidity|Soil): (-?\d+(?:\.\d+)?)`)

// Accepted ranges.
const (
	MinTemperature = 15.0
	MaxTemperature = 40.0
	MaxPercent     = 100.0
)

// Validation errors.
var (
	ErrTemperatureMissing = errors.New("temperature measurement is missing")
	ErrHumidityMissing    = errors.New("humidity measurement is missing")
	ErrTemperatureRange   = errors.New("temperature must be between 15 and 40 C")
	ErrHumidityRange      = errors.New("humidity must be between 0 and 100 %")
	ErrSoilRange          = errors.New("soil moisture must be between 0 and 100 %")
	ErrDistanceRange      = errors.New("distance must be positive")
)

// Measurement is what one report line carried. Nil fields were absent.
type Measurement struct {
	Distance    *float64 `json:"distance,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Soil        *float64 `json:"soil,omitempty"`
}

// Empty reports whether no field was recognised.
func (m Measurement) Empty() bool {
	return m.Distance == nil && m.Temperature == nil && m.Humidity == nil && m.Soil == nil
}

// Parse extracts labelled values from a report line. A later occurrence of
// a label overrides an earlier one.
func Parse(line string) Measurement {
	var m Measurement
	for _, match := range fieldPattern.FindAllStringSubmatch(line, -1) {
		v, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		switch match[1] {
		case "Distance":
			m.Distance = &v
		case "Temp":
			m.Temperature = &v
		case "Humidity":
			m.Humidity = &v
		case "Soil":
			m.Soil = &v
		}
	}
	return m
}

// Validate returns every problem with m; an empty result means m is valid.
// Temperature and humidity are required; distance and soil moisture are
// checked only when present.
func Validate(m Measurement) []error {
	var errs []error

	switch {
	case m.Temperature == nil:
		errs = append(errs, ErrTemperatureMissing)
	case *m.Temperature < MinTemperature || *m.Temperature > MaxTemperature:
		errs = append(errs, fmt.Errorf("%w: got %g", ErrTemperatureRange, *m.Temperature))
	}

	switch {
	case m.Humidity == nil:
		errs = append(errs, ErrHumidityMissing)
	case *m.Humidity < 0 || *m.Humidity > MaxPercent:
		errs = append(errs, fmt.Errorf("%w: got %g", ErrHumidityRange, *m.Humidity))
	}

	if m.Soil != nil && (*m.Soil < 0 || *m.Soil > MaxPercent) {
		errs = append(errs, fmt.Errorf("%w: got %g", ErrSoilRange, *m.Soil))
	}

	if m.Distance != nil && *m.Distance <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %g", ErrDistanceRange, *m.Distance))
	}

	return errs
}
