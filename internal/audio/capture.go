// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"visualizer/internal/ring"
)

// Capture is a running input stream together with the ring buffer it fills.
// The buffer holds one second of mono audio at the negotiated sample rate.
type Capture struct {
	device Device
	config StreamConfig
	buffer *ring.Buffer
	stream Stream

	suppressed atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// StartCapture negotiates a configuration with device, allocates the ring
// buffer and starts streaming into it. A nil device selects the default
// input device of d. Non-benign runtime faults are passed to report, which
// may be nil.
func StartCapture(d Driver, device Device, opts ConfigOptions, report ErrorReporter) (*Capture, error) {
	if device == nil {
		var err error
		if device, err = DefaultInputDevice(d); err != nil {
			return nil, err
		}
	}

	cfg, err := device.DefaultInputConfig(opts)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedFormat) && !errors.Is(err, ErrStreamBuild) {
			err = fmt.Errorf("%w: %w", ErrStreamBuild, err)
		}
		return nil, &InitError{Op: "negotiate", Device: device.Name(), Err: err}
	}
	if cfg.SampleRate == 0 || cfg.Channels < 1 {
		return nil, &InitError{Op: "negotiate", Device: device.Name(), Err: ErrStreamBuild}
	}

	c := &Capture{
		device: device,
		config: cfg,
		buffer: ring.New(int(cfg.SampleRate)),
	}

	filter := func(e *StreamError) {
		if e.Benign() {
			c.suppressed.Add(1)
			return
		}
		if report != nil {
			report(e)
		}
	}

	stream, err := device.OpenInputStream(cfg, NewDownmixer(cfg.Channels, c.buffer), filter)
	if err != nil {
		return nil, &InitError{Op: "open", Device: device.Name(), Err: fmt.Errorf("%w: %w", ErrStreamBuild, err)}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, &InitError{Op: "start", Device: device.Name(), Err: fmt.Errorf("%w: %w", ErrStreamBuild, err)}
	}
	c.stream = stream

	return c, nil
}

// Device returns the captured device.
func (c *Capture) Device() Device { return c.device }

// Config returns the negotiated stream configuration.
func (c *Capture) Config() StreamConfig { return c.config }

// Buffer returns the ring buffer filled by the stream callback.
func (c *Capture) Buffer() *ring.Buffer { return c.buffer }

// SuppressedErrors returns how many benign driver messages were filtered.
func (c *Capture) SuppressedErrors() uint64 { return c.suppressed.Load() }

// Close stops the stream and releases the device. Safe to call repeatedly.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}
