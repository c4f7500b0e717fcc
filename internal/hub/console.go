package hub

import "sync"

// LineCapacity is the size of the console line buffer. One slot is reserved
// for the terminator, so a completed line holds at most LineCapacity-1 bytes.
const LineCapacity = 100

// LineAssembler turns console bytes, delivered one at a time from the serial
// receive handler, into lines. Every byte is echoed back.
//
// Bytes past LineCapacity-1 are dropped without any error until the next
// terminator arrives. The truncation is intentional: memory stays bounded and
// Receive never allocates.
type LineAssembler struct {
	echo Console

	// mu plays the part of masking the receive interrupt: Receive holds it
	// while publishing a line and TakeLine holds it while consuming one.
	mu    sync.Mutex
	buf   [LineCapacity]byte
	n     int
	done  [LineCapacity]byte
	doneN int
	ready Flag
}

// NewLineAssembler echoes received bytes to echo.
func NewLineAssembler(echo Console) *LineAssembler {
	return &LineAssembler{echo: echo}
}

func isTerminator(b byte) bool {
	return b == '\r' || b == '\n'
}

// Receive handles a single received byte. It is meant to be registered as
// the console transport's receive callback.
func (a *LineAssembler) Receive(b byte) {
	_ = a.echo.WriteByte(b)

	if !isTerminator(b) {
		a.mu.Lock()
		if a.n < LineCapacity-1 {
			a.buf[a.n] = b
			a.n++
		}
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	a.doneN = copy(a.done[:], a.buf[:a.n])
	a.n = 0
	a.ready.Set()
	a.mu.Unlock()

	_ = a.echo.WriteByte('\n')
}

// TakeLine returns the last completed line and clears the ready signal.
// ok is false when no line has completed since the previous take.
func (a *LineAssembler) TakeLine() (line string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready.Take() {
		return "", false
	}
	return string(a.done[:a.doneN]), true
}

// Ready reports whether a completed line is waiting.
func (a *LineAssembler) Ready() bool {
	return a.ready.IsSet()
}
