package gpio

import (
	"errors"
	"strings"
	"testing"
)

type closer struct {
	err    error
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestReleaseLine(t *testing.T) {
	c := &closer{}
	if err := releaseLine(c, "DHT11 start pin 4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.closed {
		t.Error("expected line to be closed")
	}
}

func TestReleaseLineError(t *testing.T) {
	busy := errors.New("device or resource busy")
	c := &closer{err: busy}

	err := releaseLine(c, "DHT11 start pin 4")
	if !errors.Is(err, busy) {
		t.Fatalf("expected wrapped close error, got %v", err)
	}
	if !strings.Contains(err.Error(), "DHT11 start pin 4") {
		t.Errorf("expected line name in error, got %q", err)
	}
}
