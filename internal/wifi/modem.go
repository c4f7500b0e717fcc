// Package wifi drives an ESP8266-class WiFi modem over a UART using AT
// commands: join an access point, open one TCP connection, send bytes on it.
package wifi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/sensor-hub/internal/logger"
)

// DefaultBaudRate is the modem's factory UART rate.
const DefaultBaudRate = 115200

// MaxPayload is the largest payload a single CIPSEND accepts.
const MaxPayload = 2048

// Modem errors.
var (
	ErrCommandFailed = errors.New("wifi: command failed")
	ErrTimeout       = errors.New("wifi: timeout")
	ErrClosed        = errors.New("wifi: modem closed")
	ErrTooLarge      = errors.New("wifi: payload too large")
)

// Timeouts bounds each kind of modem exchange.
type Timeouts struct {
	Command time.Duration
	Join    time.Duration
	Connect time.Duration
	Send    time.Duration
}

// DefaultTimeouts suit a real ESP8266.
var DefaultTimeouts = Timeouts{
	Command: 2 * time.Second,
	Join:    20 * time.Second,
	Connect: 10 * time.Second,
	Send:    5 * time.Second,
}

// Modem talks to the modem over port. One command runs at a time.
type Modem struct {
	port     io.ReadWriteCloser
	log      *logger.Logger
	timeouts Timeouts

	cmdMu  sync.Mutex
	lines  chan string
	prompt chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	onReceive func([]byte)
	closed    bool
}

// Open opens the modem's serial port at baud (DefaultBaudRate if zero).
func Open(name string, baud int, l *logger.Logger) (*Modem, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open modem %s: %w", name, err)
	}
	return New(port, DefaultTimeouts, l), nil
}

// New starts reading modem output from port.
func New(port io.ReadWriteCloser, timeouts Timeouts, l *logger.Logger) *Modem {
	if l == nil {
		l = logger.Discard()
	}
	m := &Modem{
		port:     port,
		log:      l,
		timeouts: timeouts,
		lines:    make(chan string, 32),
		prompt:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go m.readLoop()
	return m
}

func (m *Modem) readLoop() {
	defer close(m.done)
	r := bufio.NewReader(m.port)
	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) && !m.isClosed() {
				m.log.Warnf("modem read: %v", err)
			}
			return
		}

		switch {
		case b == '>' && len(line) == 0:
			select {
			case m.prompt <- struct{}{}:
			default:
			}
		case b == '\n':
			s := strings.TrimSpace(string(line))
			line = line[:0]
			if s != "" {
				m.deliverLine(s)
			}
		case b == ':' && strings.HasPrefix(string(line), "+IPD,"):
			n, perr := strconv.Atoi(strings.TrimPrefix(string(line), "+IPD,"))
			line = line[:0]
			if perr != nil || n < 0 || n > MaxPayload {
				m.log.Warnf("modem: bad +IPD length")
				continue
			}
			data := make([]byte, n)
			if _, err := io.ReadFull(r, data); err != nil {
				return
			}
			m.deliverData(data)
		default:
			line = append(line, b)
		}
	}
}

func (m *Modem) deliverLine(s string) {
	m.log.Debugf("modem: %q", s)
	select {
	case m.lines <- s:
	default:
		m.log.Warnf("modem: response queue full, dropping %q", s)
	}
}

func (m *Modem) deliverData(data []byte) {
	m.mu.Lock()
	cb := m.onReceive
	m.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (m *Modem) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// flush drops responses left over from earlier exchanges.
func (m *Modem) flush() {
	for {
		select {
		case <-m.lines:
		case <-m.prompt:
		default:
			return
		}
	}
}

func (m *Modem) send(p []byte) error {
	if _, err := m.port.Write(p); err != nil {
		return fmt.Errorf("modem write: %w", err)
	}
	return nil
}

func isFailure(s string) bool {
	return s == "ERROR" || s == "FAIL" || s == "SEND FAIL"
}

// await waits for a line equal to want, failing on an error line.
func (m *Modem) await(want string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case s := <-m.lines:
			if s == want {
				return nil
			}
			if isFailure(s) {
				return fmt.Errorf("%w: %s", ErrCommandFailed, s)
			}
		case <-timer.C:
			return ErrTimeout
		case <-m.done:
			return ErrClosed
		}
	}
}

// Command sends one AT command and waits for OK.
func (m *Modem) Command(cmd string, timeout time.Duration) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()
	return m.command(cmd, timeout)
}

func (m *Modem) command(cmd string, timeout time.Duration) error {
	m.flush()
	if err := m.send([]byte(cmd + "\r\n")); err != nil {
		return err
	}
	if err := m.await("OK", timeout); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

// Init checks the modem answers, turns command echo off and selects station mode.
func (m *Modem) Init() error {
	for _, cmd := range []string{"AT", "ATE0", "AT+CWMODE=1"} {
		if err := m.Command(cmd, m.timeouts.Command); err != nil {
			return err
		}
	}
	return nil
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `,`, `\,`)
	return `"` + r.Replace(s) + `"`
}

// JoinAP joins the access point ssid.
func (m *Modem) JoinAP(ssid, passphrase string) error {
	cmd := "AT+CWJAP=" + quote(ssid) + "," + quote(passphrase)
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()
	if err := m.command(cmd, m.timeouts.Join); err != nil {
		return fmt.Errorf("join %q: %w", ssid, errors.Unwrap(err))
	}
	return nil
}

// CreateTCPConnection opens the single TCP connection. Data the peer sends
// back is passed to onReceive, which may be nil.
func (m *Modem) CreateTCPConnection(host string, port int, onReceive func([]byte)) error {
	m.mu.Lock()
	m.onReceive = onReceive
	m.mu.Unlock()

	cmd := fmt.Sprintf("AT+CIPSTART=\"TCP\",%s,%d", quote(host), port)
	return m.Command(cmd, m.timeouts.Connect)
}

// Transmit sends p on the open TCP connection and waits for SEND OK.
func (m *Modem) Transmit(p []byte) error {
	if len(p) > MaxPayload {
		return ErrTooLarge
	}
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	m.flush()
	if err := m.send([]byte(fmt.Sprintf("AT+CIPSEND=%d\r\n", len(p)))); err != nil {
		return err
	}

	timer := time.NewTimer(m.timeouts.Command)
	defer timer.Stop()
wait:
	for {
		select {
		case <-m.prompt:
			break wait
		case s := <-m.lines:
			if isFailure(s) {
				return fmt.Errorf("CIPSEND: %w: %s", ErrCommandFailed, s)
			}
		case <-timer.C:
			return fmt.Errorf("CIPSEND: %w", ErrTimeout)
		case <-m.done:
			return ErrClosed
		}
	}

	if err := m.send(p); err != nil {
		return err
	}
	if err := m.await("SEND OK", m.timeouts.Send); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close closes the port and waits for the reader to stop.
func (m *Modem) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	err := m.port.Close()
	<-m.done
	return err
}
