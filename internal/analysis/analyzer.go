// SPDX-License-Identifier: MIT
/*
Package analysis turns the mono sample stream into spectral frames.

The Analyzer runs on its own goroutine. Every interval it checks the ring
buffer; when a full window of WindowSize samples is available it removes
exactly that many, applies the window, runs the FFT and publishes the first
FrameSize magnitudes on a FrameChannel. Cycles with fewer samples publish
nothing. The goroutine exits only when the receiving side of the channel is
closed.
*/
package analysis

import (
	"sync"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/ring"
)

// DefaultInterval paces the analyzer at roughly 60 frames per second.
const DefaultInterval = 16 * time.Millisecond

// Observer receives analyzer statistics from the analyzer goroutine.
type Observer interface {
	FramePublished()
	SamplesDropped(n uint64)
}

type noopObserver struct{}

func (noopObserver) FramePublished()       {}
func (noopObserver) SamplesDropped(uint64) {}

// Config tunes an Analyzer. Zero values select the defaults.
type Config struct {
	Interval time.Duration
	Window   WindowFunc
	Observer Observer
}

// Analyzer is the consumer side of a capture ring buffer.
type Analyzer struct {
	buffer   *ring.Buffer
	out      *FrameChannel
	spectrum *Spectrum
	interval time.Duration
	observer Observer
	log      applog.Logger

	samples []float32 // one window, reused every cycle
	dropped uint64    // ring drop counter at the previous cycle

	startOnce sync.Once
	done      chan struct{}
}

// NewAnalyzer returns an Analyzer reading from buffer and publishing to out.
func NewAnalyzer(buffer *ring.Buffer, out *FrameChannel, cfg Config) (*Analyzer, error) {
	spectrum, err := NewSpectrum(WindowSize, cfg.Window)
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	return &Analyzer{
		buffer:   buffer,
		out:      out,
		spectrum: spectrum,
		interval: cfg.Interval,
		observer: cfg.Observer,
		log:      applog.With("analyzer"),
		samples:  make([]float32, WindowSize),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the analyzer goroutine. Further calls do nothing.
func (a *Analyzer) Start() {
	a.startOnce.Do(func() {
		a.log.Debugf("Starting (interval %s, window %s)", a.interval, a.spectrum.Window())
		go a.run()
	})
}

// Done is closed after the analyzer goroutine has returned.
func (a *Analyzer) Done() <-chan struct{} { return a.done }

func (a *Analyzer) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.out.Done():
			a.log.Debugf("Receiver closed, stopping")
			return
		case <-ticker.C:
			if err := a.cycle(); err != nil {
				a.log.Debugf("Stopping: %v", err)
				return
			}
		}
	}
}

// cycle runs one analysis step. It only fails when the receiver is gone.
func (a *Analyzer) cycle() error {
	if d := a.buffer.Dropped(); d != a.dropped {
		a.observer.SamplesDropped(d - a.dropped)
		a.dropped = d
	}

	if a.buffer.Len() < WindowSize {
		return nil
	}
	a.buffer.PopInto(a.samples)

	frame := make(SpectralFrame, FrameSize)
	a.spectrum.Compute(frame, a.samples)

	if err := a.out.Send(frame); err != nil {
		return err
	}
	a.observer.FramePublished()
	return nil
}
