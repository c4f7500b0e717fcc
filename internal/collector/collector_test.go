package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sensor-hub/internal/logger"
	"github.com/sweeney/sensor-hub/internal/mqtt"
)

var _ Forwarder = (*mqtt.FakePublisher)(nil)

func newCollector(fwd Forwarder) *Collector {
	c := New(fwd, "sensorhub/measurement", logger.Discard())
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCollector_ForwardsValid(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	c := newCollector(pub)

	m, errs := c.Process("10.0.0.5:4000", "Distance: 10 cm, Temp: 23.7 C, Humidity: 45.2 %, Motion: No")
	assert.Empty(t, errs)
	assert.Equal(t, 10.0, *m.Distance)

	_, raw := pub.Snapshot()
	require.Len(t, raw, 1)
	assert.Equal(t, "sensorhub/measurement", raw[0].Topic)
	assert.Equal(t, byte(1), raw[0].QoS)
	assert.False(t, raw[0].Retained)
	assert.JSONEq(t,
		`{"measurement":{"timestamp":"2026-03-01T12:00:00Z","source":"10.0.0.5:4000","distance":10,"temperature":23.7,"humidity":45.2}}`,
		string(raw[0].Payload))

	assert.Equal(t, Stats{Valid: 1, Forwarded: 1}, c.Stats())
}

func TestCollector_InvalidNotForwarded(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	c := newCollector(pub)

	_, errs := c.Process("hub", "Distance: 10 cm, DHT11 sensor error!, Motion: No")
	require.Len(t, errs, 2)

	_, raw := pub.Snapshot()
	assert.Empty(t, raw)
	assert.Equal(t, Stats{Invalid: 1}, c.Stats())
}

func TestCollector_BlankSkipped(t *testing.T) {
	c := newCollector(nil)

	_, errs := c.Process("hub", "")
	assert.Nil(t, errs)
	assert.Equal(t, Stats{Skipped: 1}, c.Stats())
}

func TestCollector_NoForwarder(t *testing.T) {
	c := newCollector(nil)

	_, errs := c.Process("hub", "Temp: 20 Humidity: 40")
	assert.Empty(t, errs)
	assert.Equal(t, Stats{Valid: 1}, c.Stats())
}

func TestCollector_ForwardError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("not connected")
	c := newCollector(pub)

	_, errs := c.Process("hub", "Temp: 20 Humidity: 40")
	assert.Empty(t, errs, "a forwarding failure is not a validation error")
	assert.Equal(t, Stats{Valid: 1}, c.Stats())
}

func TestFormatPayload_OmitsAbsent(t *testing.T) {
	data, err := FormatPayload(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "hub", Measurement{Temperature: ptr(20)})
	require.NoError(t, err)

	var parsed map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	inner := parsed["measurement"]
	assert.Contains(t, inner, "temperature")
	assert.NotContains(t, inner, "humidity")
	assert.NotContains(t, inner, "distance")
	assert.NotContains(t, inner, "soil")
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
	got   chan struct{}
}

func newLineRecorder() *lineRecorder {
	return &lineRecorder{got: make(chan struct{}, 64)}
}

func (r *lineRecorder) handle(_, line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *lineRecorder) wait(t *testing.T, n int) []string {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for line %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func startServer(t *testing.T, h Handler) (*Server, string, chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(h, logger.Discard())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	return srv, ln.Addr().String(), done
}

func TestServer_DeliversLines(t *testing.T) {
	rec := newLineRecorder()
	srv, addr, done := startServer(t, rec.handle)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprint(conn, "Distance: 10 cm\r\nTemp: 20\n\n")

	lines := rec.wait(t, 3)
	assert.Equal(t, []string{"Distance: 10 cm", "Temp: 20", ""}, lines)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, ErrServerClosed)
}

func TestServer_MultipleClients(t *testing.T) {
	rec := newLineRecorder()
	srv, addr, _ := startServer(t, rec.handle)
	defer srv.Shutdown(context.Background())

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()
		fmt.Fprintf(conn, "Soil: %d\n", i)
	}

	lines := rec.wait(t, 3)
	assert.ElementsMatch(t, []string{"Soil: 0", "Soil: 1", "Soil: 2"}, lines)
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	rec := newLineRecorder()
	srv, addr, done := startServer(t, rec.handle)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	fmt.Fprint(conn, "hello\n")
	rec.wait(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, ErrServerClosed)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = bufio.NewReader(conn).ReadByte()
	assert.Error(t, err, "server side of the connection should be closed")
}

func TestServer_ServeAfterShutdown(t *testing.T) {
	srv := NewServer(func(string, string) {}, logger.Discard())
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(ln), ErrServerClosed)
}

func TestServer_WithCollector(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	c := newCollector(pub)
	rec := newLineRecorder()
	srv, addr, _ := startServer(t, func(remote, line string) {
		c.Handle(remote, line)
		rec.handle(remote, line)
	})
	defer srv.Shutdown(context.Background())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	fmt.Fprint(conn, "Distance: 10 cm, Temp: 23.7 C, Humidity: 45.2 %, Motion: No\n")
	fmt.Fprint(conn, "Distance: 10 cm, DHT11 sensor error!, Motion: No\n")
	rec.wait(t, 2)

	assert.Equal(t, Stats{Valid: 1, Invalid: 1, Forwarded: 1}, c.Stats())
}
