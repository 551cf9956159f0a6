// SPDX-License-Identifier: MIT
/*
Package processor owns the live capture pipeline and offers a small facade
to a rendering or publishing loop.

A Processor is either capturing or in the no-audio state. While capturing it
holds exactly one session: an input stream filling a ring buffer, an analyzer
goroutine draining it, and the frame channel between the analyzer and the
consumer. Switching devices always tears the old session down completely
before a new stream is opened, so at most one stream is ever active.

Thread Safety:
  - PollLatestFrame, SampleRate, State and DeviceName never block and may be
    called from any goroutine.
  - SwitchDevice, NextDevice and Close are serialised internally.
*/
package processor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"visualizer/internal/analysis"
	"visualizer/internal/audio"
	applog "visualizer/internal/log"
	"visualizer/internal/metrics"
)

const (
	// FallbackSampleRate is reported while no stream is active.
	FallbackSampleRate = 44100
	// NoDeviceName is reported while no stream is active.
	NoDeviceName = "No Device"
	// streamErrorBacklog bounds the queue of unread stream errors.
	streamErrorBacklog = 16
)

// ErrClosed is returned by operations on a closed Processor.
var ErrClosed = errors.New("processor closed")

// State is the capture state of a Processor.
type State int

const (
	NoAudio State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "no audio"
}

// Options configures a Processor. Driver is required.
type Options struct {
	Driver          audio.Driver
	PreferredFormat audio.SampleFormat
	MaxChannels     int
	Interval        time.Duration
	Window          analysis.WindowFunc
	ResultCapacity  int
	Metrics         *metrics.Metrics
}

// session is one running capture pipeline.
type session struct {
	capture  *audio.Capture
	results  *analysis.FrameChannel
	analyzer *analysis.Analyzer
}

// Processor is the facade over capture, analysis and device management.
type Processor struct {
	opts Options
	log  applog.Logger

	mu      sync.Mutex // serialises lifecycle changes
	closed  bool
	current atomic.Pointer[session]

	errs chan error
}

func newProcessor(opts Options) *Processor {
	if opts.ResultCapacity < 1 {
		opts.ResultCapacity = analysis.DefaultResultCapacity
	}
	if opts.Interval <= 0 {
		opts.Interval = analysis.DefaultInterval
	}
	return &Processor{
		opts: opts,
		log:  applog.With("processor"),
		errs: make(chan error, streamErrorBacklog),
	}
}

// New starts capturing from device, or from the default input device of the
// selected host when device is nil. It fails if the pipeline cannot start.
func New(device audio.Device, opts Options) (*Processor, error) {
	if opts.Driver == nil {
		return nil, errors.New("processor: no audio driver")
	}
	p := newProcessor(opts)
	s, err := p.start(device)
	if err != nil {
		return nil, err
	}
	p.install(s)
	return p, nil
}

// Open never fails on audio errors. It tries the first enumerated input
// device, then the host default, and otherwise returns a Processor in the
// no-audio state.
func Open(opts Options) (*Processor, error) {
	if opts.Driver == nil {
		return nil, errors.New("processor: no audio driver")
	}
	p := newProcessor(opts)

	devices, err := audio.ListInputDevices(opts.Driver)
	if err != nil {
		p.log.Warnf("Device enumeration failed: %v", err)
	}
	if len(devices) > 0 {
		s, err := p.start(devices[0])
		if err == nil {
			p.install(s)
			return p, nil
		}
		p.log.Warnf("Failed to start %q: %v", devices[0].Name(), err)
	}

	s, err := p.start(nil)
	if err != nil {
		p.log.Warnf("No audio available: %v", err)
		p.install(nil)
		return p, nil
	}
	p.install(s)
	return p, nil
}

// start builds a complete session. The ring buffer exists before the stream
// is armed, and the analyzer runs before start returns.
func (p *Processor) start(device audio.Device) (*session, error) {
	results := analysis.NewFrameChannel(p.opts.ResultCapacity)

	c, err := audio.StartCapture(p.opts.Driver, device, audio.ConfigOptions{
		PreferredFormat: p.opts.PreferredFormat,
		MaxChannels:     p.opts.MaxChannels,
	}, p.reportStreamError)
	if err != nil {
		return nil, err
	}

	var observer analysis.Observer
	if p.opts.Metrics != nil {
		observer = p.opts.Metrics
	}
	a, err := analysis.NewAnalyzer(c.Buffer(), results, analysis.Config{
		Interval: p.opts.Interval,
		Window:   p.opts.Window,
		Observer: observer,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	a.Start()

	p.log.Infof("Capturing from %q on %s (%s)", c.Device().Name(), c.Device().HostName(), c.Config())
	return &session{capture: c, results: results, analyzer: a}, nil
}

// stop releases the stream first, then drops the frame receiver and waits
// for the analyzer to exit.
func (s *session) stop() error {
	err := s.capture.Close()
	s.results.Close()
	<-s.analyzer.Done()
	return err
}

func (p *Processor) install(s *session) {
	p.current.Store(s)
	if s == nil {
		p.opts.Metrics.SetCapturing(0)
		return
	}
	p.opts.Metrics.SetCapturing(s.capture.Config().SampleRate)
}

// reportStreamError runs on the device thread: it must not block.
func (p *Processor) reportStreamError(e *audio.StreamError) {
	p.opts.Metrics.ObserveStreamError()
	select {
	case p.errs <- e:
	default:
	}
}

// Snapshot is a frame labelled with the stream that produced it.
type Snapshot struct {
	Frame      analysis.SpectralFrame
	SampleRate uint32
	Device     string
}

// PollLatestFrame returns the newest pending frame and discards older ones.
// It reports false when no frame is pending or no stream is active.
func (p *Processor) PollLatestFrame() (analysis.SpectralFrame, bool) {
	snap, ok := p.PollLatest()
	return snap.Frame, ok
}

// PollLatest is PollLatestFrame with the sample rate and device name of the
// session the frame came from. All three are read from one session, so a
// concurrent switch cannot mislabel the frame.
func (p *Processor) PollLatest() (Snapshot, bool) {
	s := p.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	f, ok := s.results.Latest()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Frame:      f,
		SampleRate: s.capture.Config().SampleRate,
		Device:     s.capture.Device().Name(),
	}, true
}

// SampleRate returns the active stream's rate, or FallbackSampleRate.
func (p *Processor) SampleRate() uint32 {
	if s := p.current.Load(); s != nil {
		return s.capture.Config().SampleRate
	}
	return FallbackSampleRate
}

// State reports whether a stream is active.
func (p *Processor) State() State {
	if p.current.Load() != nil {
		return Capturing
	}
	return NoAudio
}

// Device returns the active device, or nil.
func (p *Processor) Device() audio.Device {
	if s := p.current.Load(); s != nil {
		return s.capture.Device()
	}
	return nil
}

// DeviceName returns the active device's name, or NoDeviceName.
func (p *Processor) DeviceName() string {
	if d := p.Device(); d != nil {
		return d.Name()
	}
	return NoDeviceName
}

// StreamErrors delivers non-benign asynchronous stream errors. Errors are
// dropped while the queue is full.
func (p *Processor) StreamErrors() <-chan error { return p.errs }

// SwitchDevice replaces the active stream with one on device. The old
// session is fully released first. On failure the previous device is
// reopened; if that also fails the Processor enters the no-audio state.
// The returned error describes the failed switch either way.
func (p *Processor) SwitchDevice(device audio.Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	var previous audio.Device
	if old := p.current.Swap(nil); old != nil {
		previous = old.capture.Device()
		if err := old.stop(); err != nil {
			p.log.Warnf("Closing %q: %v", previous.Name(), err)
		}
	}

	s, err := p.start(device)
	if err == nil {
		p.install(s)
		p.opts.Metrics.RecordSwitch(metrics.SwitchOK)
		return nil
	}
	p.log.Warnf("Switch to %q failed: %v", deviceName(device), err)

	if previous != nil {
		restored, rerr := p.start(previous)
		if rerr == nil {
			p.install(restored)
			p.opts.Metrics.RecordSwitch(metrics.SwitchRolledBack)
			p.log.Infof("Restored previous device %q", previous.Name())
			return err
		}
		p.log.Warnf("Restoring %q failed: %v", previous.Name(), rerr)
	}

	p.install(nil)
	p.opts.Metrics.RecordSwitch(metrics.SwitchNoAudio)
	return err
}

// NextDevice switches to the device after the active one in enumeration
// order, wrapping around. With no active device it starts the first one.
func (p *Processor) NextDevice() error {
	devices, err := audio.ListInputDevices(p.opts.Driver)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return &audio.InitError{Op: "enumerate", Err: audio.ErrNoInputDevice}
	}

	next := 0
	if cur := p.Device(); cur != nil {
		for i, d := range devices {
			if audio.SameDevice(d, cur) {
				next = (i + 1) % len(devices)
				break
			}
		}
	}
	return p.SwitchDevice(devices[next])
}

// Close stops the active session. The Processor cannot be reused.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	s := p.current.Swap(nil)
	p.opts.Metrics.SetCapturing(0)
	if s == nil {
		return nil
	}
	if err := s.stop(); err != nil {
		return fmt.Errorf("closing %q: %w", s.capture.Device().Name(), err)
	}
	return nil
}

func deviceName(d audio.Device) string {
	if d == nil {
		return "default device"
	}
	return d.Name()
}
