package gpio

import (
	"sync"

	"github.com/sweeney/sensor-hub/internal/hub"
)

// FakeMotion is a MotionSource driven by the test through Trigger.
type FakeMotion struct {
	mu      sync.Mutex
	handler func()

	// StartError, if set, is returned by Start.
	StartError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMotion creates an idle FakeMotion.
func NewFakeMotion() *FakeMotion {
	return &FakeMotion{}
}

// Start records handler.
func (f *FakeMotion) Start(handler func()) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// Trigger simulates one motion edge. It does nothing before Start.
func (f *FakeMotion) Trigger() {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h()
	}
}

// Close marks the source as closed.
func (f *FakeMotion) Close() error {
	f.Closed = true
	return nil
}

// FakeDistance returns scripted raw echo counts.
// When the script runs out the last value repeats.
type FakeDistance struct {
	Counts []uint32
	index  int

	// MeasureError, if set, is returned by Measure.
	MeasureError error
}

// NewFakeDistance creates a FakeDistance with the given counts.
func NewFakeDistance(counts ...uint32) *FakeDistance {
	return &FakeDistance{Counts: counts}
}

// Measure returns the next scripted count.
func (f *FakeDistance) Measure() (uint32, error) {
	if f.MeasureError != nil {
		return 0, f.MeasureError
	}
	if len(f.Counts) == 0 {
		return 0, ErrTimeout
	}
	c := f.Counts[f.index]
	if f.index < len(f.Counts)-1 {
		f.index++
	}
	return c, nil
}

// FakeClimate returns a scripted reading or error.
type FakeClimate struct {
	Climate hub.Climate

	// ReadError, if set, is returned by Read.
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeClimate creates a FakeClimate returning c.
func NewFakeClimate(c hub.Climate) *FakeClimate {
	return &FakeClimate{Climate: c}
}

// Read returns the scripted reading.
func (f *FakeClimate) Read() (hub.Climate, error) {
	f.Reads++
	if f.ReadError != nil {
		return hub.Climate{}, f.ReadError
	}
	return f.Climate, nil
}
