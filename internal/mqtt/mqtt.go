// Package mqtt mirrors sensor hub reports to an MQTT broker, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// Default topics.
const (
	TopicReport = "sensorhub/report"
	TopicSystem = "sensorhub/system"
)

// Topics names the topics a publisher writes to.
type Topics struct {
	Report string
	System string
}

// DefaultTopics returns the default topic names.
func DefaultTopics() Topics {
	return Topics{Report: TopicReport, System: TopicSystem}
}

// Publisher publishes hub output to MQTT.
type Publisher interface {
	// PublishReport sends one cycle's report.
	// Returns error if publishing fails (should not crash the process).
	PublishReport(report hub.Report) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishRaw sends an already encoded payload.
	PublishRaw(topic string, qos byte, retained bool, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (STARTUP, SHUTDOWN, OFFLINE).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the report message envelope.
type Payload struct {
	Report ReportPayload `json:"report"`
}

// ReportPayload contains one report.
type ReportPayload struct {
	Timestamp   string         `json:"timestamp"`
	Line        string         `json:"line"`
	DistanceCM  uint32         `json:"distance_cm"`
	DistanceRaw uint32         `json:"distance_raw"`
	Climate     ClimatePayload `json:"climate"`
	Motion      bool           `json:"motion"`
}

// ClimatePayload carries the humidity/temperature part of a report.
type ClimatePayload struct {
	OK          bool     `json:"ok"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// FormatPayload creates the JSON payload for a report.
func FormatPayload(report hub.Report) ([]byte, error) {
	r := report.Reading
	climate := ClimatePayload{OK: r.ClimateOK()}
	if r.ClimateOK() {
		temp, hum := r.Climate.Temperature(), r.Climate.Humidity()
		climate.Temperature = &temp
		climate.Humidity = &hum
	} else {
		climate.Error = r.ClimateErr.Error()
	}

	payload := Payload{
		Report: ReportPayload{
			Timestamp:   report.Time.UTC().Format(time.RFC3339),
			Line:        report.Line,
			DistanceCM:  r.DistanceCM,
			DistanceRaw: r.DistanceRaw,
			Climate:     climate,
			Motion:      report.Motion,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message for events without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{Event: event.Event, Reason: event.Reason}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the hub
// drops off without a SHUTDOWN.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection_lost"})
	return data
}
