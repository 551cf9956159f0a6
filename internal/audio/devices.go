// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Library entry points, replaced in tests.
var (
	paLibInitialize        = portaudio.Initialize
	paLibTerminate         = portaudio.Terminate
	paLibHostApis          = portaudio.HostApis
	paLibDefaultHostApi    = portaudio.DefaultHostApi
	paLibIsFormatSupported = portaudio.IsFormatSupported
	paLibOpenStream        = portaudio.OpenStream
)

// Initialize sets up the PortAudio subsystem.
// This must be called before using PortAudioDriver and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// PortAudioDriver exposes every PortAudio host API as a Host.
type PortAudioDriver struct {
	LowLatency bool // open streams with the device's low input latency
}

func (PortAudioDriver) Name() string { return "portaudio" }

func (p PortAudioDriver) Hosts() ([]Host, error) {
	apis, err := paLibHostApis()
	if err != nil {
		return nil, err
	}
	hosts := make([]Host, 0, len(apis))
	for _, api := range apis {
		hosts = append(hosts, &paHost{api: api, lowLatency: p.LowLatency})
	}
	return hosts, nil
}

func (p PortAudioDriver) DefaultHost() (Host, error) {
	api, err := paLibDefaultHostApi()
	if err != nil {
		return nil, err
	}
	return &paHost{api: api, lowLatency: p.LowLatency}, nil
}

type paHost struct {
	api        *portaudio.HostApiInfo
	lowLatency bool
}

func (h *paHost) Name() string { return h.api.Name }

func (h *paHost) InputDevices() ([]Device, error) {
	devices := []Device{}
	for _, info := range h.api.Devices {
		if info.MaxInputChannels > 0 {
			devices = append(devices, &paDevice{info: info, lowLatency: h.lowLatency})
		}
	}
	return devices, nil
}

func (h *paHost) DefaultInputDevice() (Device, error) {
	info := h.api.DefaultInputDevice
	if info == nil || info.MaxInputChannels == 0 {
		return nil, ErrNoInputDevice
	}
	return &paDevice{info: info, lowLatency: h.lowLatency}, nil
}

type paDevice struct {
	info       *portaudio.DeviceInfo
	lowLatency bool
}

func (d *paDevice) Name() string { return d.info.Name }

func (d *paDevice) HostName() string {
	if d.info.HostApi == nil {
		return ""
	}
	return d.info.HostApi.Name
}

// paDefaultChannels caps the channel count when none is configured.
// PortAudio reports only a maximum, and virtual ALSA devices such as
// "default" and "pulse" advertise 32 inputs that are mostly silent.
const paDefaultChannels = 2

// DefaultInputConfig uses the device's default sample rate and at most
// paDefaultChannels channels unless opts sets the cap. It picks the first
// encoding PortAudio accepts, trying the preferred one first. PortAudio has
// no unsigned 16-bit format.
func (d *paDevice) DefaultInputConfig(opts ConfigOptions) (StreamConfig, error) {
	limit := opts.MaxChannels
	if limit <= 0 {
		limit = paDefaultChannels
	}
	channels := min(d.info.MaxInputChannels, limit)
	cfg := StreamConfig{
		SampleRate: uint32(d.info.DefaultSampleRate),
		Channels:   channels,
	}

	for _, format := range []SampleFormat{opts.PreferredFormat, FormatF32, FormatI16} {
		probe, ok := paProbe(format)
		if !ok {
			continue
		}
		cfg.Format = format
		if err := paLibIsFormatSupported(d.params(cfg), probe); err == nil {
			return cfg, nil
		}
	}
	return StreamConfig{}, fmt.Errorf("%w: %s accepts none of f32, i16", ErrUnsupportedFormat, d.info.Name)
}

func (d *paDevice) OpenInputStream(cfg StreamConfig, sink *Downmixer, report ErrorReporter) (Stream, error) {
	flags := newFlagReporter(report)

	var callback any
	switch cfg.Format {
	case FormatF32:
		callback = func(in []float32, _ portaudio.StreamCallbackTimeInfo, f portaudio.StreamCallbackFlags) {
			sink.WriteF32(in)
			flags.check(f)
		}
	case FormatI16:
		callback = func(in []int16, _ portaudio.StreamCallbackTimeInfo, f portaudio.StreamCallbackFlags) {
			sink.WriteI16(in)
			flags.check(f)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}

	stream, err := paLibOpenStream(d.params(cfg), callback)
	if err != nil {
		return nil, err
	}
	return &paStream{stream: stream}, nil
}

func (d *paDevice) params(cfg StreamConfig) portaudio.StreamParameters {
	latency := d.info.DefaultHighInputLatency
	if d.lowLatency {
		latency = d.info.DefaultLowInputLatency
	}
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   d.info,
			Channels: cfg.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}
}

// paProbe returns a callback whose signature tells PortAudio which sample
// type to check.
func paProbe(format SampleFormat) (any, bool) {
	switch format {
	case FormatF32:
		return func([]float32) {}, true
	case FormatI16:
		return func([]int16) {}, true
	default:
		return nil, false
	}
}

type paStream struct {
	stream *portaudio.Stream
}

func (s *paStream) Start() error { return s.stream.Start() }

func (s *paStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		_ = s.stream.Close()
		return err
	}
	return s.stream.Close()
}

// flagReporter turns PortAudio status flags into pre-built stream errors so
// the callback never allocates.
type flagReporter struct {
	report    ErrorReporter
	overflow  *StreamError
	underflow *StreamError
}

func newFlagReporter(report ErrorReporter) *flagReporter {
	return &flagReporter{
		report:    report,
		overflow:  NewStreamError("input overflow, samples lost"),
		underflow: NewStreamError("input underflow"),
	}
}

func (r *flagReporter) check(f portaudio.StreamCallbackFlags) {
	if r.report == nil || f == 0 {
		return
	}
	if f&portaudio.InputOverflow != 0 {
		r.report(r.overflow)
	}
	if f&portaudio.InputUnderflow != 0 {
		r.report(r.underflow)
	}
}

// Details describes the device for the list command.
func (d *paDevice) Details() string {
	return fmt.Sprintf("Input channels: %d, Default sample rate: %.0f Hz, Latency: Low=%s, High=%s",
		d.info.MaxInputChannels,
		d.info.DefaultSampleRate,
		describeLatency(d.info.DefaultLowInputLatency),
		describeLatency(d.info.DefaultHighInputLatency))
}

func describeLatency(d time.Duration) string {
	return fmt.Sprintf("%.2fms", d.Seconds()*1000)
}
