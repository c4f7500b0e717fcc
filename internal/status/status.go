// Package status provides a thread-safe view of the sensor hub for the web
// page and the MQTT lifecycle events. The tracker also serves as the hub's
// numeric display.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// NetworkInfo describes the WiFi uplink. It is a local copy to avoid
// importing internal/wifi from status.
type NetworkInfo struct {
	Type   string
	Status string
	SSID   string
	Peer   string
}

// Config contains hub configuration for display.
type Config struct {
	PeriodMs        int64
	DistanceDivisor uint32
	ConsolePort     string
	Broker          string
	HTTPAddr        string
}

// Counts tallies what the hub has seen since start.
type Counts struct {
	Cycles       int
	MotionEdges  int
	MotionCycles int
	ConsoleLines int
}

// Snapshot is a point-in-time view of hub state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Display       int
	HasReport     bool
	Last          hub.Report
	LastLine      string
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the hub started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable hub state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// ShowInt records the value the hub currently displays.
func (t *Tracker) ShowInt(v int) {
	t.mu.Lock()
	t.snap.Display = v
	t.mu.Unlock()
}

// RecordReport stores the latest cycle report.
// Called from the cycle observer once per cycle.
func (t *Tracker) RecordReport(r hub.Report) {
	t.mu.Lock()
	t.snap.Last = r
	t.snap.HasReport = true
	t.snap.Counts.Cycles++
	if r.Motion {
		t.snap.Counts.MotionCycles++
	}
	t.mu.Unlock()
}

// RecordMotion counts one motion sensor edge.
func (t *Tracker) RecordMotion() {
	t.mu.Lock()
	t.snap.Counts.MotionEdges++
	t.mu.Unlock()
}

// RecordLine stores the latest completed console line.
func (t *Tracker) RecordLine(line string) {
	t.mu.Lock()
	t.snap.LastLine = line
	t.snap.Counts.ConsoleLines++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the hub state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
