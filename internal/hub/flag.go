package hub

import "sync/atomic"

// Flag is a single bit shared between an asynchronous handler and the main
// loop. The handler only calls Set; the loop reads and clears in one step
// with Take so an edge landing between read and clear is never lost.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set() {
	f.v.Store(true)
}

// Take clears the flag and reports whether it was set.
func (f *Flag) Take() bool {
	return f.v.Swap(false)
}

// Clear drops the flag. Clearing a clear flag does nothing.
func (f *Flag) Clear() {
	f.v.Store(false)
}

func (f *Flag) IsSet() bool {
	return f.v.Load()
}
