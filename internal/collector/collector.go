package collector

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sweeney/sensor-hub/internal/logger"
)

// Forwarder publishes an encoded payload; *mqtt.RealPublisher satisfies it.
type Forwarder interface {
	PublishRaw(topic string, qos byte, retained bool, payload []byte) error
}

// Stats counts processed lines.
type Stats struct {
	Valid     int
	Invalid   int
	Forwarded int
	Skipped   int
}

// Payload is the forwarded message envelope.
type Payload struct {
	Measurement MeasurementPayload `json:"measurement"`
}

// MeasurementPayload carries one validated measurement.
type MeasurementPayload struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Measurement
}

// FormatPayload creates the JSON payload for a forwarded measurement.
func FormatPayload(at time.Time, source string, m Measurement) ([]byte, error) {
	return json.Marshal(Payload{Measurement: MeasurementPayload{
		Timestamp:   at.UTC().Format(time.RFC3339),
		Source:      source,
		Measurement: m,
	}})
}

// Collector validates received lines and forwards the valid ones.
type Collector struct {
	forward Forwarder
	topic   string
	log     *logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// New creates a Collector. forward may be nil, in which case valid
// measurements are only logged.
func New(forward Forwarder, topic string, l *logger.Logger) *Collector {
	return &Collector{
		forward: forward,
		topic:   topic,
		log:     l.WithTag("collector"),
		now:     time.Now,
	}
}

// Handle processes one line; it has the Handler signature.
func (c *Collector) Handle(remote, line string) {
	c.Process(remote, line)
}

// Process parses and validates line. It returns the measurement and its
// validation errors. Blank lines are skipped.
func (c *Collector) Process(remote, line string) (Measurement, []error) {
	if line == "" {
		c.count(func(s *Stats) { s.Skipped++ })
		return Measurement{}, nil
	}

	c.log.Debugf("processing data from %s: %q", remote, line)
	m := Parse(line)
	errs := Validate(m)
	if len(errs) > 0 {
		c.count(func(s *Stats) { s.Invalid++ })
		c.log.Warnf("invalid measurement from %s: %v", remote, errors.Join(errs...))
		return m, errs
	}

	c.count(func(s *Stats) { s.Valid++ })
	c.log.Infof("valid measurement from %s: %s", remote, line)

	if c.forward == nil {
		return m, nil
	}
	payload, err := FormatPayload(c.now(), remote, m)
	if err != nil {
		c.log.Errorf("encode measurement: %v", err)
		return m, nil
	}
	if err := c.forward.PublishRaw(c.topic, 1, false, payload); err != nil {
		c.log.Warnf("forward measurement: %v", err)
		return m, nil
	}
	c.count(func(s *Stats) { s.Forwarded++ })
	return m, nil
}

func (c *Collector) count(f func(*Stats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

// Stats returns a copy of the counters.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
