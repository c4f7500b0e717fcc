package mqtt

import (
	"sync"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// RawMessage is one PublishRaw call.
type RawMessage struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	// Reports contains all reports that were published.
	Reports []hub.Report

	// Payloads contains the JSON payloads of published reports.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Raw contains messages sent through PublishRaw.
	Raw []RawMessage

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishReport records the report.
func (f *FakePublisher) PublishReport(report hub.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(report)
	if err != nil {
		return err
	}
	f.Reports = append(f.Reports, report)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// PublishRaw records the message.
func (f *FakePublisher) PublishRaw(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Raw = append(f.Raw, RawMessage{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Snapshot returns copies of the recorded reports and raw messages.
func (f *FakePublisher) Snapshot() ([]hub.Report, []RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Report(nil), f.Reports...), append([]RawMessage(nil), f.Raw...)
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reports = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Raw = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
