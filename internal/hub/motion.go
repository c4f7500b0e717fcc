package hub

import "io"

// MotionNotice is written to the console on every motion edge.
const MotionNotice = "Motion detected!\n"

// MotionLatch remembers whether any motion edge arrived since the last
// report. Edges are not counted: several edges between two reports collapse
// into a single "Yes".
type MotionLatch struct {
	flag    Flag
	console io.StringWriter
}

// NewMotionLatch writes its edge notice to console.
func NewMotionLatch(console io.StringWriter) *MotionLatch {
	return &MotionLatch{console: console}
}

// OnMotion is the motion sensor's edge callback. It latches the edge and
// notifies the console, nothing else.
func (m *MotionLatch) OnMotion() {
	m.flag.Set()
	_, _ = m.console.WriteString(MotionNotice)
}

// Take reports whether motion occurred since the previous Take and clears
// the latch in the same step.
func (m *MotionLatch) Take() bool {
	return m.flag.Take()
}

// Pending reports the latch without clearing it.
func (m *MotionLatch) Pending() bool {
	return m.flag.IsSet()
}
