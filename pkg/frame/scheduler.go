// Package frame coalesces frame requests into wakes of the host event loop.
package frame

import (
	"errors"
	"sync/atomic"
)

// ErrAlreadyInitialized is returned by Init after the first call.
var ErrAlreadyInitialized = errors.New("frame: scheduler already initialized")

type wakeFunc struct {
	fn func()
}

// Scheduler holds the frame-requested flag. Only the false to true
// transition wakes the host, so a burst of requests costs one wake.
// The zero value is ready to use; requests before Init set the flag but
// wake nothing.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	wake      atomic.Pointer[wakeFunc]
	requested atomic.Bool
	wakes     atomic.Uint64
}

// Init installs the host wake primitive. It may be called once.
func (s *Scheduler) Init(wake func()) error {
	if wake == nil {
		return errors.New("frame: nil wake function")
	}
	if !s.wake.CompareAndSwap(nil, &wakeFunc{fn: wake}) {
		return ErrAlreadyInitialized
	}
	return nil
}

// RequestFrame sets the frame-requested flag and wakes the host if the flag
// was clear.
func (s *Scheduler) RequestFrame() {
	if !s.requested.CompareAndSwap(false, true) {
		return
	}
	if w := s.wake.Load(); w != nil {
		s.wakes.Add(1)
		w.fn()
	}
}

// TakeFrameRequested reads and clears the frame-requested flag.
func (s *Scheduler) TakeFrameRequested() bool {
	return s.requested.Swap(false)
}

// FrameRequested reports the flag without clearing it.
func (s *Scheduler) FrameRequested() bool {
	return s.requested.Load()
}

// Wakes returns how many times the host has been woken.
func (s *Scheduler) Wakes() uint64 {
	return s.wakes.Load()
}

// ChannelWaker is a wake primitive for event loops that block on a channel.
// Wakes that arrive while one is already pending are merged.
type ChannelWaker struct {
	c chan struct{}
}

// NewChannelWaker creates a waker with room for one pending wake.
func NewChannelWaker() *ChannelWaker {
	return &ChannelWaker{c: make(chan struct{}, 1)}
}

// Wake signals the channel without blocking.
func (w *ChannelWaker) Wake() {
	select {
	case w.c <- struct{}{}:
	default:
	}
}

// C returns the channel the event loop receives wakes on.
func (w *ChannelWaker) C() <-chan struct{} {
	return w.c
}
