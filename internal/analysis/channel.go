// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
)

// DefaultResultCapacity is the number of frames the channel buffers.
const DefaultResultCapacity = 10

// ErrReceiverClosed is returned by Send once the receiving side is gone.
var ErrReceiverClosed = errors.New("spectral frame receiver closed")

// FrameChannel is a bounded single-producer/single-consumer queue of frames.
// The analyzer sends, the owner of the channel polls and eventually closes.
type FrameChannel struct {
	frames chan SpectralFrame
	done   chan struct{}
	once   sync.Once
}

// NewFrameChannel returns a channel buffering up to capacity frames.
func NewFrameChannel(capacity int) *FrameChannel {
	if capacity < 1 {
		capacity = DefaultResultCapacity
	}
	return &FrameChannel{
		frames: make(chan SpectralFrame, capacity),
		done:   make(chan struct{}),
	}
}

// Send enqueues f, waiting while the channel is full. It returns
// ErrReceiverClosed once Close has been called.
func (c *FrameChannel) Send(f SpectralFrame) error {
	select {
	case <-c.done:
		return ErrReceiverClosed
	default:
	}
	select {
	case c.frames <- f:
		return nil
	case <-c.done:
		return ErrReceiverClosed
	}
}

// Latest drains every pending frame without blocking and returns the most
// recent one. It reports false when nothing was pending.
func (c *FrameChannel) Latest() (SpectralFrame, bool) {
	var (
		latest SpectralFrame
		ok     bool
	)
	for {
		select {
		case f := <-c.frames:
			latest, ok = f, true
		default:
			return latest, ok
		}
	}
}

// Len returns the number of pending frames.
func (c *FrameChannel) Len() int { return len(c.frames) }

// Cap returns the channel capacity.
func (c *FrameChannel) Cap() int { return cap(c.frames) }

// Close drops the receiving side. Pending and future frames are discarded.
func (c *FrameChannel) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed when the receiving side has been dropped.
func (c *FrameChannel) Done() <-chan struct{} { return c.done }
