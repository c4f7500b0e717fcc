//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// PIR watches a passive-infrared sensor's output for rising edges.
type PIR struct {
	chip     string
	offset   int
	debounce time.Duration
	line     *gpiocdev.Line
}

// NewPIR prepares a PIR on the given chip line. Nothing is requested until Start.
func NewPIR(chip string, offset int, debounce time.Duration) *PIR {
	return &PIR{chip: chip, offset: offset, debounce: debounce}
}

// Start requests the line with rising-edge detection and calls handler on
// every edge.
func (p *PIR) Start(handler func()) error {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				handler()
			}
		}),
	}
	if p.debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(p.debounce))
	}

	line, err := gpiocdev.RequestLine(p.chip, p.offset, opts...)
	if err != nil {
		return fmt.Errorf("request PIR pin %d: %w", p.offset, err)
	}
	p.line = line
	return nil
}

// Close releases the line.
func (p *PIR) Close() error {
	if p.line == nil {
		return nil
	}
	err := releaseLine(p.line, "PIR pin")
	p.line = nil
	return err
}

// EchoTimeout bounds the wait for each echo edge. The HC-SR04 gives up after
// about 38ms when nothing reflects.
const EchoTimeout = 60 * time.Millisecond

// HCSR04 is an ultrasonic ranging module driven by a trigger and an echo line.
type HCSR04 struct {
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line
	events  chan gpiocdev.LineEvent
}

// NewHCSR04 requests the trigger line as an output held low and the echo
// line as an input watching both edges.
func NewHCSR04(chip string, trigger, echo int) (*HCSR04, error) {
	h := &HCSR04{events: make(chan gpiocdev.LineEvent, 8)}

	trig, err := gpiocdev.RequestLine(chip, trigger,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("request trigger pin %d: %w", trigger, err)
	}

	ech, err := gpiocdev.RequestLine(chip, echo,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithEventHandler(h.onEdge))
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", echo, err)
	}

	h.trigger = trig
	h.echo = ech
	return h, nil
}

func (h *HCSR04) onEdge(evt gpiocdev.LineEvent) {
	select {
	case h.events <- evt:
	default:
	}
}

func (h *HCSR04) await(typ gpiocdev.LineEventType, deadline <-chan time.Time) (gpiocdev.LineEvent, bool) {
	for {
		select {
		case evt := <-h.events:
			if evt.Type == typ {
				return evt, true
			}
		case <-deadline:
			return gpiocdev.LineEvent{}, false
		}
	}
}

// Measure fires one 10µs trigger pulse and returns the echo pulse width in
// microseconds. Without an echo it returns 0 and ErrTimeout.
func (h *HCSR04) Measure() (uint32, error) {
	for len(h.events) > 0 {
		<-h.events
	}

	if err := h.trigger.SetValue(1); err != nil {
		return 0, fmt.Errorf("trigger high: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := h.trigger.SetValue(0); err != nil {
		return 0, fmt.Errorf("trigger low: %w", err)
	}

	timer := time.NewTimer(EchoTimeout)
	defer timer.Stop()

	rise, ok := h.await(gpiocdev.LineEventRisingEdge, timer.C)
	if !ok {
		return 0, ErrTimeout
	}
	fall, ok := h.await(gpiocdev.LineEventFallingEdge, timer.C)
	if !ok {
		return 0, ErrTimeout
	}
	return EchoCount(rise.Timestamp, fall.Timestamp), nil
}

// Close releases both lines.
func (h *HCSR04) Close() error {
	var errs []error
	if h.echo != nil {
		if err := releaseLine(h.echo, "echo pin"); err != nil {
			errs = append(errs, err)
		}
	}
	if h.trigger != nil {
		if err := releaseLine(h.trigger, "trigger pin"); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// DHT11 timing.
const (
	dht11StartLow   = 18 * time.Millisecond
	dht11FrameTime  = 20 * time.Millisecond
	dht11FrameEdges = 2*dht11Bits + 4
)

// DHT11 reads a single-wire DHT11 sensor by timing the edges of its reply.
type DHT11 struct {
	chip   string
	offset int
}

// NewDHT11 prepares a DHT11 on the given chip line.
func NewDHT11(chip string, offset int) *DHT11 {
	return &DHT11{chip: chip, offset: offset}
}

// Read sends the start signal, captures the reply and decodes it.
func (d *DHT11) Read() (hub.Climate, error) {
	out, err := gpiocdev.RequestLine(d.chip, d.offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return hub.Climate{}, fmt.Errorf("request DHT11 pin %d: %w", d.offset, err)
	}
	time.Sleep(dht11StartLow)
	if err := releaseLine(out, fmt.Sprintf("DHT11 start pin %d", d.offset)); err != nil {
		return hub.Climate{}, err
	}

	events := make(chan gpiocdev.LineEvent, dht11FrameEdges*2)
	in, err := gpiocdev.RequestLine(d.chip, d.offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case events <- evt:
			default:
			}
		}))
	if err != nil {
		return hub.Climate{}, fmt.Errorf("request DHT11 pin %d: %w", d.offset, err)
	}
	defer in.Close()

	var edges []Edge
	timer := time.NewTimer(dht11FrameTime)
	defer timer.Stop()
collect:
	for len(edges) < dht11FrameEdges {
		select {
		case evt := <-events:
			edges = append(edges, Edge{
				Rising: evt.Type == gpiocdev.LineEventRisingEdge,
				At:     evt.Timestamp,
			})
		case <-timer.C:
			break collect
		}
	}

	return DecodeDHT11(edges)
}
