package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/sensor-hub/internal/hub"
)

func sampleReport(motion bool) hub.Report {
	return hub.Report{
		Time: time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC),
		Reading: hub.Reading{
			DistanceRaw: 1160,
			DistanceCM:  20,
			Climate:     hub.Climate{HumidityInt: 40, TemperatureInt: 21, TemperatureDec: 5},
		},
		Motion: motion,
		Line:   "Distance: 20 cm, Temp: 21.5 C, Humidity: 40.0 %, Motion: No\n",
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PeriodMs: 10000, DistanceDivisor: 58, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PeriodMs != 10000 {
		t.Errorf("Config.PeriodMs: got %d, want 10000", snap.Config.PeriodMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.HasReport {
		t.Error("expected HasReport=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestShowInt(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.ShowInt(42)
	if got := tr.Snapshot().Display; got != 42 {
		t.Errorf("Display: got %d, want 42", got)
	}
	tr.ShowInt(0)
	if got := tr.Snapshot().Display; got != 0 {
		t.Errorf("Display: got %d, want 0", got)
	}
}

func TestRecordReport(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordReport(sampleReport(false))
	tr.RecordReport(sampleReport(true))

	snap := tr.Snapshot()
	if !snap.HasReport {
		t.Fatal("expected HasReport=true")
	}
	if snap.Counts.Cycles != 2 {
		t.Errorf("Counts.Cycles: got %d, want 2", snap.Counts.Cycles)
	}
	if snap.Counts.MotionCycles != 1 {
		t.Errorf("Counts.MotionCycles: got %d, want 1", snap.Counts.MotionCycles)
	}
	if !snap.Last.Motion {
		t.Error("Last should be the most recent report")
	}
}

func TestRecordMotionAndLine(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordMotion()
	tr.RecordMotion()
	tr.RecordLine("status")
	tr.RecordLine("help")

	snap := tr.Snapshot()
	if snap.Counts.MotionEdges != 2 {
		t.Errorf("Counts.MotionEdges: got %d, want 2", snap.Counts.MotionEdges)
	}
	if snap.Counts.ConsoleLines != 2 {
		t.Errorf("Counts.ConsoleLines: got %d, want 2", snap.Counts.ConsoleLines)
	}
	if snap.LastLine != "help" {
		t.Errorf("LastLine: got %q, want help", snap.LastLine)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", Status: "connected", SSID: "MyNet", Peer: "192.168.1.10:5000"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.Peer != "192.168.1.10:5000" {
		t.Errorf("Network.Peer: got %q", snap.Network.Peer)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.ShowInt(10)
	tr.RecordReport(sampleReport(false))

	snap1 := tr.Snapshot()

	tr.ShowInt(20)
	tr.RecordReport(sampleReport(true))

	if snap1.Display != 10 {
		t.Error("snapshot should be a copy; Display was modified")
	}
	if snap1.Last.Motion || snap1.Counts.Cycles != 1 {
		t.Error("snapshot should be a copy; report was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Display:       20,
		HasReport:     true,
		Last:          sampleReport(false),
		Counts:        Counts{Cycles: 90, MotionEdges: 4, MotionCycles: 2, ConsoleLines: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PeriodMs: 10000, DistanceDivisor: 58, Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Display != 20 {
		t.Errorf("Display: got %d, want 20", s.Display)
	}
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Cycles != 90 || s.Counts.MotionEdges != 4 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.LastReport == nil {
		t.Fatal("expected last_report")
	}
	if s.LastReport.DistanceCM != 20 || !s.LastReport.ClimateOK {
		t.Errorf("LastReport: got %+v", s.LastReport)
	}
	if s.LastReport.Temperature == nil || *s.LastReport.Temperature != 21.5 {
		t.Errorf("LastReport.Temperature: got %v", s.LastReport.Temperature)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("event and reason should be omitted from the web status")
	}
	if s.Config.DistanceDivisor != 58 {
		t.Errorf("Config.DistanceDivisor: got %d", s.Config.DistanceDivisor)
	}
}

func TestFormatJSONBeforeFirstReport(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if _, exists := status["last_report"]; exists {
		t.Error("last_report should be omitted before the first cycle")
	}
	if status["ready"] != false {
		t.Errorf("ready: got %v, want false", status["ready"])
	}
}

func TestFormatJSONClimateError(t *testing.T) {
	rep := sampleReport(true)
	rep.Reading.ClimateErr = errors.New("no response")
	snap := Snapshot{HasReport: true, Last: rep}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.LastReport.ClimateOK {
		t.Error("expected climate_ok=false")
	}
	if parsed.Status.LastReport.Temperature != nil || parsed.Status.LastReport.Humidity != nil {
		t.Error("temperature and humidity should be omitted on climate error")
	}
	if !parsed.Status.LastReport.Motion {
		t.Error("expected motion=true")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Display:   7,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 1800 {
		t.Errorf("UptimeSeconds: got %d, want 1800", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", Status: "connected", SSID: "MyNet", Peer: "10.0.0.2:5000"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.ShowInt(i)
			tr.RecordMotion()
			tr.RecordReport(sampleReport(i%2 == 0))
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()

	if got := tr.Snapshot().Counts.MotionEdges; got != 1000 {
		t.Errorf("MotionEdges: got %d, want 1000", got)
	}
}

var _ hub.Display = (*Tracker)(nil)
