// SPDX-License-Identifier: MIT

// Package audiotest provides scriptable in-memory audio drivers for tests.
package audiotest

import (
	"errors"
	"sync"

	"visualizer/internal/audio"
)

// Driver is a fake audio.Driver.
type Driver struct {
	HostList []*Host
	Fallback *Host // returned by DefaultHost
	HostsErr error
}

// NewDriver returns a driver with a single host holding devices.
func NewDriver(devices ...*Device) *Driver {
	h := NewHost("Fake", devices...)
	return &Driver{HostList: []*Host{h}, Fallback: h}
}

func (d *Driver) Name() string { return "fake" }

func (d *Driver) Hosts() ([]audio.Host, error) {
	if d.HostsErr != nil {
		return nil, d.HostsErr
	}
	hosts := make([]audio.Host, len(d.HostList))
	for i, h := range d.HostList {
		hosts[i] = h
	}
	return hosts, nil
}

func (d *Driver) DefaultHost() (audio.Host, error) {
	if d.Fallback == nil {
		return nil, errors.New("fake: no default host")
	}
	return d.Fallback, nil
}

// ActiveStreams counts streams opened and not yet closed on every device.
func (d *Driver) ActiveStreams() int {
	n := 0
	for _, h := range d.HostList {
		for _, dev := range h.DeviceList {
			n += dev.ActiveStreams()
		}
	}
	return n
}

// Host is a fake audio.Host.
type Host struct {
	HostName   string
	DeviceList []*Device
	Default    int // index into DeviceList, negative for none
	Err        error
}

// NewHost returns a host whose default is its first device.
func NewHost(name string, devices ...*Device) *Host {
	h := &Host{HostName: name, DeviceList: devices}
	for _, d := range devices {
		d.Host = name
	}
	return h
}

func (h *Host) Name() string { return h.HostName }

func (h *Host) InputDevices() ([]audio.Device, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	out := make([]audio.Device, len(h.DeviceList))
	for i, d := range h.DeviceList {
		out[i] = d
	}
	return out, nil
}

func (h *Host) DefaultInputDevice() (audio.Device, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	if h.Default < 0 || h.Default >= len(h.DeviceList) {
		return nil, audio.ErrNoInputDevice
	}
	return h.DeviceList[h.Default], nil
}

// Device is a fake audio.Device. Its stream does nothing until Feed is
// called, which plays the role of the driver callback.
type Device struct {
	DeviceName string
	Host       string
	Config     audio.StreamConfig
	ConfigErr  error
	OpenErr    error
	StartErr   error
	OnOpen     func() // called before a stream is opened

	mu      sync.Mutex
	opens   int
	streams []*Stream
}

// NewDevice returns a working mono f32 device at sampleRate.
func NewDevice(name string, sampleRate uint32) *Device {
	return &Device{
		DeviceName: name,
		Config:     audio.StreamConfig{SampleRate: sampleRate, Channels: 1, Format: audio.FormatF32},
	}
}

func (d *Device) Name() string     { return d.DeviceName }
func (d *Device) HostName() string { return d.Host }

func (d *Device) DefaultInputConfig(audio.ConfigOptions) (audio.StreamConfig, error) {
	if d.ConfigErr != nil {
		return audio.StreamConfig{}, d.ConfigErr
	}
	return d.Config, nil
}

func (d *Device) OpenInputStream(_ audio.StreamConfig, sink *audio.Downmixer, report audio.ErrorReporter) (audio.Stream, error) {
	if d.OnOpen != nil {
		d.OnOpen()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opens++
	s := &Stream{device: d, sink: sink, report: report}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opens returns how many streams were ever opened.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// ActiveStreams returns how many streams are open and not closed.
func (d *Device) ActiveStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		if !s.closed {
			n++
		}
	}
	return n
}

// LastStream returns the most recently opened stream, or nil.
func (d *Device) LastStream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// Stream is a fake audio.Stream.
type Stream struct {
	device  *Device
	sink    *audio.Downmixer
	report  audio.ErrorReporter
	started bool
	closed  bool
}

func (s *Stream) Start() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	if s.device.StartErr != nil {
		return s.device.StartErr
	}
	s.started = true
	return nil
}

func (s *Stream) Close() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	s.closed = true
	return nil
}

// Running reports whether the stream was started and not closed.
func (s *Stream) Running() bool {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	return s.started && !s.closed
}

// Feed delivers interleaved f32 samples as a device callback would.
// Samples sent to a stopped stream are discarded.
func (s *Stream) Feed(samples []float32) {
	if !s.Running() {
		return
	}
	s.sink.WriteF32(samples)
}

// Fail reports an asynchronous stream fault.
func (s *Stream) Fail(msg string) {
	if s.report != nil {
		s.report(audio.NewStreamError(msg))
	}
}
