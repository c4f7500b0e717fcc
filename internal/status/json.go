package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Display       int          `json:"display"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastReport    *ReportJSON  `json:"last_report,omitempty"`
	LastLine      string       `json:"last_console_line,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReportJSON is the JSON representation of the last cycle report.
type ReportJSON struct {
	Timestamp   string   `json:"timestamp"`
	Line        string   `json:"line"`
	DistanceCM  uint32   `json:"distance_cm"`
	ClimateOK   bool     `json:"climate_ok"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Motion      bool     `json:"motion"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of hub counters.
type CountsJSON struct {
	Cycles       int `json:"cycles"`
	MotionEdges  int `json:"motion_edges"`
	MotionCycles int `json:"motion_cycles"`
	ConsoleLines int `json:"console_lines"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	SSID   string `json:"ssid"`
	Peer   string `json:"peer"`
}

// ConfigJSON is the JSON representation of hub config.
type ConfigJSON struct {
	PeriodMs        int64  `json:"period_ms"`
	DistanceDivisor uint32 `json:"distance_divisor"`
	ConsolePort     string `json:"console_port"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Display:       snap.Display,
		Ready:         snap.HasReport,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		LastLine:      snap.LastLine,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:       snap.Counts.Cycles,
			MotionEdges:  snap.Counts.MotionEdges,
			MotionCycles: snap.Counts.MotionCycles,
			ConsoleLines: snap.Counts.ConsoleLines,
		},
		Config: ConfigJSON{
			PeriodMs:        snap.Config.PeriodMs,
			DistanceDivisor: snap.Config.DistanceDivisor,
			ConsolePort:     snap.Config.ConsolePort,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}

	if snap.HasReport {
		r := snap.Last
		rj := &ReportJSON{
			Timestamp:  r.Time.UTC().Format(time.RFC3339),
			Line:       r.Line,
			DistanceCM: r.Reading.DistanceCM,
			ClimateOK:  r.Reading.ClimateOK(),
			Motion:     r.Motion,
		}
		if r.Reading.ClimateOK() {
			temp, hum := r.Reading.Climate.Temperature(), r.Reading.Climate.Humidity()
			rj.Temperature = &temp
			rj.Humidity = &hum
		}
		inner.LastReport = rj
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:   snap.Network.Type,
			Status: snap.Network.Status,
			SSID:   snap.Network.SSID,
			Peer:   snap.Network.Peer,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
