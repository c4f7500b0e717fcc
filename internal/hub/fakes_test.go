package hub

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeConsole records everything written to it.
type fakeConsole struct {
	mu  sync.Mutex
	out []byte
	err error
}

func (f *fakeConsole) WriteByte(b byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, b)
	return f.err
}

func (f *fakeConsole) WriteString(s string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, s...)
	return len(s), f.err
}

func (f *fakeConsole) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.out)
}

func (f *fakeConsole) Reset() {
	f.mu.Lock()
	f.out = nil
	f.mu.Unlock()
}

type fakeDistance struct {
	raw []uint32
	err error
	n   int
}

func (f *fakeDistance) Measure() (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	v := f.raw[f.n]
	if f.n < len(f.raw)-1 {
		f.n++
	}
	return v, nil
}

type fakeClimate struct {
	c   Climate
	err error
}

func (f *fakeClimate) Read() (Climate, error) {
	if f.err != nil {
		return Climate{}, f.err
	}
	return f.c, nil
}

type fakeDisplay struct {
	shown []int
}

func (f *fakeDisplay) ShowInt(v int) {
	f.shown = append(f.shown, v)
}

type fakeNetwork struct {
	sent [][]byte
	err  error
}

func (f *fakeNetwork) Transmit(p []byte) error {
	f.sent = append(f.sent, append([]byte(nil), p...))
	return f.err
}

// fakeWaiter returns immediately, recording each requested duration. After
// limit calls it cancels the run via cancel.
type fakeWaiter struct {
	waits  []time.Duration
	limit  int
	cancel context.CancelFunc
	hook   func()
}

func (f *fakeWaiter) Wait(ctx context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	if f.hook != nil {
		f.hook()
	}
	if f.limit > 0 && len(f.waits) >= f.limit && f.cancel != nil {
		f.cancel()
	}
	return ctx.Err()
}

var errSensor = errors.New("sensor: no response")
