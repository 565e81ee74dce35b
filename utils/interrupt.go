package utils

import "sync/atomic"

// Interrupter lets a long-running operation be cancelled cooperatively from
// another goroutine. Implementations must be safe for concurrent use.
type Interrupter interface {
	// Start is called when the operation begins; name identifies it.
	Start(name string)
	// End is called when the operation finishes or is abandoned.
	End()
	// WasInterrupted reports whether the operation should stop early.
	// percent is the estimated progress in [0, 100], or -1 if unknown.
	WasInterrupted(percent int) bool
}

// NullInterrupter never interrupts. It is the default for all operations that
// accept an Interrupter.
type NullInterrupter struct{}

// Start does nothing.
func (NullInterrupter) Start(string) {}

// End does nothing.
func (NullInterrupter) End() {}

// WasInterrupted always returns false.
func (NullInterrupter) WasInterrupted(int) bool { return false }

// FlagInterrupter interrupts once its Interrupt method has been called.
type FlagInterrupter struct {
	interrupted atomic.Bool
}

// Interrupt requests that the running operation stop.
func (f *FlagInterrupter) Interrupt() { f.interrupted.Store(true) }

// Start does nothing.
func (f *FlagInterrupter) Start(string) {}

// End does nothing.
func (f *FlagInterrupter) End() {}

// WasInterrupted reports whether Interrupt has been called.
func (f *FlagInterrupter) WasInterrupted(int) bool { return f.interrupted.Load() }
