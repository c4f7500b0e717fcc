// Package console is the serial console transport. Received bytes are pushed
// one at a time to a registered handler from a reader goroutine; writes block
// until the bytes are handed to the port.
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/sweeney/sensor-hub/internal/logger"
)

// DefaultBaudRate is the console's symbol rate.
const DefaultBaudRate = 9600

// Console wraps a byte stream, usually a serial port.
type Console struct {
	port io.ReadWriteCloser
	log  *logger.Logger

	wmu sync.Mutex

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// Open opens the named serial port at baud (DefaultBaudRate if zero), 8N1.
func Open(name string, baud int, l *logger.Logger) (*Console, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", name, err)
	}
	return New(port, l), nil
}

// New wraps an already open stream.
func New(port io.ReadWriteCloser, l *logger.Logger) *Console {
	if l == nil {
		l = logger.Discard()
	}
	return &Console{port: port, log: l, done: make(chan struct{})}
}

// Start begins delivering received bytes to handler, one call per byte, in
// arrival order. It may be called once.
func (c *Console) Start(handler func(b byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("console: closed")
	}
	if c.started {
		return errors.New("console: already started")
	}
	c.started = true
	go c.readLoop(handler)
	return nil
}

func (c *Console) readLoop(handler func(b byte)) {
	defer close(c.done)
	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		for _, b := range buf[:n] {
			handler(b)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.isClosed() {
				c.log.Warnf("console read: %v", err)
			}
			return
		}
	}
}

func (c *Console) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WriteByte transmits a single byte.
func (c *Console) WriteByte(b byte) error {
	_, err := c.write([]byte{b})
	return err
}

// WriteString transmits s.
func (c *Console) WriteString(s string) (int, error) {
	return c.write([]byte(s))
}

// Write transmits p.
func (c *Console) Write(p []byte) (int, error) {
	return c.write(p)
}

func (c *Console) write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("console write: %w", err)
	}
	return n, nil
}

// Close closes the port and waits for the reader to stop.
func (c *Console) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	err := c.port.Close()
	if started {
		<-c.done
	}
	return err
}
