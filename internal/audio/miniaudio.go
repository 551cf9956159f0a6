// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// MiniaudioDriver exposes malgo backends as hosts. Each enumeration or
// stream opens its own context, so handles stay valid independently.
type MiniaudioDriver struct{}

func (MiniaudioDriver) Name() string { return "miniaudio" }

// Hosts returns the platform backends in preference order.
func (MiniaudioDriver) Hosts() ([]Host, error) {
	backends := platformBackends(runtime.GOOS)
	hosts := make([]Host, 0, len(backends))
	for _, b := range backends {
		hosts = append(hosts, &maHost{backend: b})
	}
	return hosts, nil
}

func (MiniaudioDriver) DefaultHost() (Host, error) {
	backends := platformBackends(runtime.GOOS)
	if len(backends) == 0 {
		return nil, fmt.Errorf("no miniaudio backend for %s", runtime.GOOS)
	}
	return &maHost{backend: backends[0]}, nil
}

func platformBackends(goos string) []malgo.Backend {
	switch goos {
	case "linux":
		return []malgo.Backend{malgo.BackendPulseaudio, malgo.BackendAlsa, malgo.BackendJack}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi, malgo.BackendDsound, malgo.BackendWinmm}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	case "freebsd", "openbsd", "netbsd":
		return []malgo.Backend{malgo.BackendSndio, malgo.BackendAudio4, malgo.BackendOss}
	case "android":
		return []malgo.Backend{malgo.BackendAaudio, malgo.BackendOpensl}
	default:
		return nil
	}
}

func backendName(b malgo.Backend) string {
	switch b {
	case malgo.BackendWasapi:
		return "WASAPI"
	case malgo.BackendDsound:
		return "DirectSound"
	case malgo.BackendWinmm:
		return "WinMM"
	case malgo.BackendCoreaudio:
		return "CoreAudio"
	case malgo.BackendSndio:
		return "sndio"
	case malgo.BackendAudio4:
		return "audio(4)"
	case malgo.BackendOss:
		return "OSS"
	case malgo.BackendPulseaudio:
		return "PulseAudio"
	case malgo.BackendAlsa:
		return "ALSA"
	case malgo.BackendJack:
		return "JACK"
	case malgo.BackendAaudio:
		return "AAudio"
	case malgo.BackendOpensl:
		return "OpenSL ES"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// maContext opens a single-backend context. logProc may be nil.
func maContext(b malgo.Backend, logProc malgo.LogProc) (*malgo.AllocatedContext, error) {
	return malgo.InitContext([]malgo.Backend{b}, malgo.ContextConfig{}, logProc)
}

func maRelease(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

type maHost struct {
	backend malgo.Backend
}

func (h *maHost) Name() string { return backendName(h.backend) }

func (h *maHost) devices() ([]*maDevice, error) {
	ctx, err := maContext(h.backend, nil)
	if err != nil {
		return nil, err
	}
	defer maRelease(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	devices := make([]*maDevice, 0, len(infos))
	for i := range infos {
		devices = append(devices, &maDevice{
			backend:   h.backend,
			id:        infos[i].ID,
			name:      infos[i].Name(),
			isDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

func (h *maHost) InputDevices() ([]Device, error) {
	devices, err := h.devices()
	if err != nil {
		return nil, err
	}
	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = d
	}
	return out, nil
}

// DefaultInputDevice returns the device flagged as default, falling back to
// the first one when the backend flags none.
func (h *maHost) DefaultInputDevice() (Device, error) {
	devices, err := h.devices()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoInputDevice
	}
	for _, d := range devices {
		if d.isDefault {
			return d, nil
		}
	}
	return devices[0], nil
}

type maDevice struct {
	backend   malgo.Backend
	id        malgo.DeviceID
	name      string
	isDefault bool
}

func (d *maDevice) Name() string     { return d.name }
func (d *maDevice) HostName() string { return backendName(d.backend) }

func (d *maDevice) config(cfg StreamConfig, format malgo.FormatType) malgo.DeviceConfig {
	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.Capture.DeviceID = d.id.Pointer()
	dc.Capture.Format = format
	dc.Capture.Channels = uint32(cfg.Channels)
	dc.SampleRate = cfg.SampleRate
	dc.Alsa.NoMMap = 1
	return dc
}

// DefaultInputConfig initialises the device with no format constraints and
// reads back what miniaudio chose as native.
func (d *maDevice) DefaultInputConfig(opts ConfigOptions) (StreamConfig, error) {
	ctx, err := maContext(d.backend, nil)
	if err != nil {
		return StreamConfig{}, err
	}
	defer maRelease(ctx)

	probe, err := malgo.InitDevice(ctx.Context, d.config(StreamConfig{}, malgo.FormatUnknown), malgo.DeviceCallbacks{})
	if err != nil {
		return StreamConfig{}, err
	}
	defer probe.Uninit()

	format, err := fromMalgoFormat(probe.CaptureFormat())
	if err != nil {
		return StreamConfig{}, fmt.Errorf("%s: %w", d.name, err)
	}
	channels := int(probe.CaptureChannels())
	if opts.MaxChannels > 0 && channels > opts.MaxChannels {
		channels = opts.MaxChannels
	}
	return StreamConfig{
		SampleRate: probe.SampleRate(),
		Channels:   channels,
		Format:     format,
	}, nil
}

func fromMalgoFormat(f malgo.FormatType) (SampleFormat, error) {
	switch f {
	case malgo.FormatF32:
		return FormatF32, nil
	case malgo.FormatS16:
		return FormatI16, nil
	default:
		return 0, fmt.Errorf("%w: miniaudio format %d", ErrUnsupportedFormat, f)
	}
}

func (d *maDevice) OpenInputStream(cfg StreamConfig, sink *Downmixer, report ErrorReporter) (Stream, error) {
	var (
		format malgo.FormatType
		data   func(_, in []byte, _ uint32)
	)
	switch cfg.Format {
	case FormatF32:
		format = malgo.FormatF32
		data = func(_, in []byte, _ uint32) { sink.WriteF32(bytesAs[float32](in)) }
	case FormatI16:
		format = malgo.FormatS16
		data = func(_, in []byte, _ uint32) { sink.WriteI16(bytesAs[int16](in)) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}

	s := &maStream{report: report, stopped: NewStreamError("device stopped unexpectedly")}

	ctx, err := maContext(d.backend, s.onLog)
	if err != nil {
		return nil, err
	}
	device, err := malgo.InitDevice(ctx.Context, d.config(cfg, format), malgo.DeviceCallbacks{
		Data: data,
		Stop: s.onStop,
	})
	if err != nil {
		maRelease(ctx)
		return nil, err
	}
	s.ctx = ctx
	s.device = device
	return s, nil
}

// bytesAs reinterprets a raw capture buffer. miniaudio hands out buffers
// aligned for the sample type.
func bytesAs[T float32 | int16](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/int(unsafe.Sizeof(zero)))
}

type maStream struct {
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	report  ErrorReporter
	stopped *StreamError
	closing atomic.Bool
}

func (s *maStream) Start() error { return s.device.Start() }

func (s *maStream) Close() error {
	s.closing.Store(true)
	err := s.device.Stop()
	s.device.Uninit()
	maRelease(s.ctx)
	return err
}

func (s *maStream) onStop() {
	if s.closing.Load() || s.report == nil {
		return
	}
	s.report(s.stopped)
}

// onLog forwards backend failures. miniaudio logs at every level, so only
// messages that mention an error are passed on. It runs outside the data
// callback, so building an error value here is allowed.
func (s *maStream) onLog(msg string) {
	if s.report == nil || s.closing.Load() {
		return
	}
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "error") && !strings.Contains(lower, "fail") {
		return
	}
	s.report(NewStreamError(strings.TrimSpace(msg)))
}
