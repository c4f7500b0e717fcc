package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/sensor-hub/internal/hub"
	"github.com/sweeney/sensor-hub/internal/logger"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logger.Logger
}

// ConnectTimeout bounds how long NewRealPublisher waits for the first CONNACK.
const ConnectTimeout = 10 * time.Second

// NewRealPublisher creates a publisher for broker and waits up to timeout for
// the connection. On timeout the publisher is still returned and keeps
// retrying in the background; publishes fail until it connects. The last
// will is registered on topics.System, and omitted when that is empty.
func NewRealPublisher(broker, clientID string, topics Topics, timeout time.Duration, l *logger.Logger) (*RealPublisher, error) {
	if l == nil {
		l = logger.Discard()
	}
	p := &RealPublisher{topics: topics, log: l}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOnConnectHandler(func(paho.Client) {
			l.Infof("mqtt: connected to %s", broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			l.Warnf("mqtt: connection lost: %v", err)
		})

	if topics.System != "" {
		opts.SetWill(topics.System, string(WillPayload()), 1, true)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		l.Warnf("mqtt: no connection to %s after %v, retrying in background", broker, timeout)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishRaw sends payload to topic.
func (p *RealPublisher) PublishRaw(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("publish %s: not connected", topic)
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishReport sends a report (QoS 0, not retained).
func (p *RealPublisher) PublishReport(report hub.Report) error {
	payload, err := FormatPayload(report)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.PublishRaw(p.topics.Report, 0, false, payload)
}

// PublishSystem sends a lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.PublishRaw(p.topics.System, 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
