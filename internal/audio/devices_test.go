package audio

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Fatalf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func fakeHostApi() *portaudio.HostApiInfo {
	api := &portaudio.HostApiInfo{Name: "ALSA"}
	mic := &portaudio.DeviceInfo{
		Name:                    "USB Mic",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  5 * time.Millisecond,
		DefaultHighInputLatency: 20 * time.Millisecond,
		HostApi:                 api,
	}
	speakers := &portaudio.DeviceInfo{Name: "Speakers", MaxOutputChannels: 2, HostApi: api}
	array := &portaudio.DeviceInfo{Name: "Mic Array", MaxInputChannels: 8, DefaultSampleRate: 16000, HostApi: api}
	api.Devices = []*portaudio.DeviceInfo{mic, speakers, array}
	api.DefaultInputDevice = mic
	return api
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestPortAudioHostsError(t *testing.T) {
	orig := paLibHostApis
	defer func() { paLibHostApis = orig }()
	paLibHostApis = func() ([]*portaudio.HostApiInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	_, err := ListInputDevices(PortAudioDriver{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceEnumeration)
	assert.Contains(t, err.Error(), "PortAudio not initialized")
}

func TestPortAudioInputDevices(t *testing.T) {
	origApis, origDefault := paLibHostApis, paLibDefaultHostApi
	defer func() { paLibHostApis, paLibDefaultHostApi = origApis, origDefault }()

	empty := &portaudio.HostApiInfo{Name: "OSS"}
	alsa := fakeHostApi()
	paLibHostApis = func() ([]*portaudio.HostApiInfo, error) {
		return []*portaudio.HostApiInfo{empty, alsa}, nil
	}
	paLibDefaultHostApi = func() (*portaudio.HostApiInfo, error) { return empty, nil }

	devices, err := ListInputDevices(PortAudioDriver{})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "USB Mic", devices[0].Name())
	assert.Equal(t, "Mic Array", devices[1].Name())
	assert.Equal(t, "ALSA", devices[0].HostName())

	def, err := DefaultInputDevice(PortAudioDriver{})
	require.NoError(t, err)
	assert.Equal(t, "USB Mic", def.Name())

	details, ok := devices[0].(Describer)
	require.True(t, ok)
	assert.Contains(t, details.Details(), "Latency: Low=5.00ms, High=20.00ms")
}

func TestPortAudioNoDefaultInput(t *testing.T) {
	host := &paHost{api: &portaudio.HostApiInfo{Name: "JACK"}}
	_, err := host.DefaultInputDevice()
	assert.ErrorIs(t, err, ErrNoInputDevice)
}

func TestPortAudioNegotiation(t *testing.T) {
	orig := paLibIsFormatSupported
	defer func() { paLibIsFormatSupported = orig }()

	api := fakeHostApi()
	mic := &paDevice{info: api.Devices[0]}
	array := &paDevice{info: api.Devices[2], lowLatency: true}
	virtual := &paDevice{info: &portaudio.DeviceInfo{
		Name:              "default",
		MaxInputChannels:  32,
		DefaultSampleRate: 44100,
		HostApi:           api.Devices[0].HostApi,
	}}
	mono := &paDevice{info: &portaudio.DeviceInfo{
		Name:              "Headset",
		MaxInputChannels:  1,
		DefaultSampleRate: 16000,
		HostApi:           api.Devices[0].HostApi,
	}}

	tests := []struct {
		name      string
		device    *paDevice
		opts      ConfigOptions
		supported func(args []interface{}) bool
		want      StreamConfig
		wantErr   error
	}{
		{
			name:      "preferred i16 accepted",
			device:    mic,
			opts:      ConfigOptions{PreferredFormat: FormatI16},
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 48000, Channels: 2, Format: FormatI16},
		},
		{
			name:   "falls back to f32",
			device: mic,
			opts:   ConfigOptions{PreferredFormat: FormatI16},
			supported: func(args []interface{}) bool {
				_, ok := args[0].(func([]float32))
				return ok
			},
			want: StreamConfig{SampleRate: 48000, Channels: 2, Format: FormatF32},
		},
		{
			name:      "u16 preference skipped",
			device:    mic,
			opts:      ConfigOptions{PreferredFormat: FormatU16},
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 48000, Channels: 2, Format: FormatF32},
		},
		{
			name:      "channel cap",
			device:    array,
			opts:      ConfigOptions{MaxChannels: 2},
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 16000, Channels: 2, Format: FormatF32},
		},
		{
			name:      "32-channel virtual device opens stereo",
			device:    virtual,
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 44100, Channels: 2, Format: FormatF32},
		},
		{
			name:      "mono device stays mono",
			device:    mono,
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatF32},
		},
		{
			name:      "explicit cap above stereo",
			device:    array,
			opts:      ConfigOptions{MaxChannels: 6},
			supported: func([]interface{}) bool { return true },
			want:      StreamConfig{SampleRate: 16000, Channels: 6, Format: FormatF32},
		},
		{
			name:      "nothing supported",
			device:    mic,
			supported: func([]interface{}) bool { return false },
			wantErr:   ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paLibIsFormatSupported = func(p portaudio.StreamParameters, args ...interface{}) error {
				if tt.device.lowLatency {
					assert.Equal(t, tt.device.info.DefaultLowInputLatency, p.Input.Latency)
				} else {
					assert.Equal(t, tt.device.info.DefaultHighInputLatency, p.Input.Latency)
				}
				if tt.supported(args) {
					return nil
				}
				return fmt.Errorf("sample format not supported")
			}

			got, err := tt.device.DefaultInputConfig(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagReporter(t *testing.T) {
	var got []string
	r := newFlagReporter(func(e *StreamError) { got = append(got, e.Message) })

	r.check(0)
	r.check(portaudio.InputOverflow)
	r.check(portaudio.InputUnderflow | portaudio.InputOverflow)

	assert.Equal(t, []string{
		"input overflow, samples lost",
		"input overflow, samples lost",
		"input underflow",
	}, got)

	allocs := testing.AllocsPerRun(100, func() {
		newFlagReporterNoop.check(portaudio.InputOverflow)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations reporting flags, got %.1f", allocs)
	}
}

var newFlagReporterNoop = newFlagReporter(func(*StreamError) {})

func TestPortAudioHardware(t *testing.T) {
	setupPortAudio(t)

	devices, err := ListInputDevices(PortAudioDriver{})
	require.NoError(t, err)
	if len(devices) == 0 {
		t.Skip("No input devices available")
	}
	for i, d := range devices {
		if d.Name() == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}
}
