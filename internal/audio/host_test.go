package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"visualizer/internal/audio"
	"visualizer/internal/audio/audiotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSelectHostPrefersHostWithInputs(t *testing.T) {
	empty := audiotest.NewHost("Empty")
	broken := audiotest.NewHost("Broken", audiotest.NewDevice("ghost", 48000))
	broken.Err = errors.New("backend crashed")
	live := audiotest.NewHost("Live", audiotest.NewDevice("mic", 48000))
	d := &audiotest.Driver{HostList: []*audiotest.Host{empty, broken, live}, Fallback: empty}

	h, err := audio.SelectHost(d)
	require.NoError(t, err)
	assert.Equal(t, "Live", h.Name())
}

func TestSelectHostFallsBackToDefault(t *testing.T) {
	a := audiotest.NewHost("A")
	b := audiotest.NewHost("B")
	d := &audiotest.Driver{HostList: []*audiotest.Host{a, b}, Fallback: b}

	h, err := audio.SelectHost(d)
	require.NoError(t, err)
	assert.Equal(t, "B", h.Name())

	devices, err := audio.ListInputDevices(d)
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestSelectHostEnumerationError(t *testing.T) {
	d := &audiotest.Driver{HostsErr: errors.New("no sound server")}

	_, err := audio.SelectHost(d)
	assert.ErrorIs(t, err, audio.ErrDeviceEnumeration)

	_, err = audio.ListInputDevices(d)
	assert.ErrorIs(t, err, audio.ErrDeviceEnumeration)
}

func TestListInputDevicesOrder(t *testing.T) {
	d := audiotest.NewDriver(
		audiotest.NewDevice("first", 44100),
		audiotest.NewDevice("second", 48000),
		audiotest.NewDevice("third", 96000),
	)

	devices, err := audio.ListInputDevices(d)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, devices[i].Name())
	}
}

func TestFindInputDevice(t *testing.T) {
	d := audiotest.NewDriver(
		audiotest.NewDevice("Built-in Microphone", 44100),
		audiotest.NewDevice("USB Audio CODEC", 48000),
	)

	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{"1", "USB Audio CODEC", false},
		{"0", "Built-in Microphone", false},
		{"usb", "USB Audio CODEC", false},
		{"5", "", true},
		{"-1", "", true},
		{"bluetooth", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			dev, err := audio.FindInputDevice(d, tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, audio.ErrNoInputDevice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dev.Name())
		})
	}
}

func TestStartCaptureDefaultDevice(t *testing.T) {
	mic := audiotest.NewDevice("mic", 8000)
	mic.Config.Channels = 2
	d := audiotest.NewDriver(audiotest.NewDevice("other", 44100), mic)
	d.HostList[0].Default = 1

	c, err := audio.StartCapture(d, nil, audio.ConfigOptions{}, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "mic", c.Device().Name())
	assert.Equal(t, 8000, c.Buffer().Cap())
	assert.Equal(t, audio.StreamConfig{SampleRate: 8000, Channels: 2, Format: audio.FormatF32}, c.Config())

	mic.LastStream().Feed([]float32{0.5, -0.5, 1.0, 0.0})
	got := make([]float32, 4)
	n := c.Buffer().PopInto(got)
	assert.Equal(t, []float32{0.0, 0.5}, got[:n])

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, d.ActiveStreams())
}

func TestStartCaptureNoDevice(t *testing.T) {
	d := audiotest.NewDriver()

	_, err := audio.StartCapture(d, nil, audio.ConfigOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrNoInputDevice)

	var initErr *audio.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "default device", initErr.Op)
}

func TestStartCaptureFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(dev *audiotest.Device)
		wantErr error
		op      string
	}{
		{
			name:    "unsupported format",
			setup:   func(dev *audiotest.Device) { dev.ConfigErr = audio.ErrUnsupportedFormat },
			wantErr: audio.ErrUnsupportedFormat,
			op:      "negotiate",
		},
		{
			name:    "config query fails",
			setup:   func(dev *audiotest.Device) { dev.ConfigErr = errors.New("device busy") },
			wantErr: audio.ErrStreamBuild,
			op:      "negotiate",
		},
		{
			name:    "zero sample rate",
			setup:   func(dev *audiotest.Device) { dev.Config.SampleRate = 0 },
			wantErr: audio.ErrStreamBuild,
			op:      "negotiate",
		},
		{
			name:    "open fails",
			setup:   func(dev *audiotest.Device) { dev.OpenErr = errors.New("unplugged") },
			wantErr: audio.ErrStreamBuild,
			op:      "open",
		},
		{
			name:    "start fails",
			setup:   func(dev *audiotest.Device) { dev.StartErr = errors.New("exclusive mode") },
			wantErr: audio.ErrStreamBuild,
			op:      "start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := audiotest.NewDevice("mic", 48000)
			tt.setup(dev)
			d := audiotest.NewDriver(dev)

			_, err := audio.StartCapture(d, dev, audio.ConfigOptions{}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var initErr *audio.InitError
			require.ErrorAs(t, err, &initErr)
			assert.Equal(t, tt.op, initErr.Op)
			assert.Equal(t, "mic", initErr.Device)
			assert.Equal(t, 0, d.ActiveStreams())
		})
	}
}

func TestStartCaptureFiltersBenignErrors(t *testing.T) {
	dev := audiotest.NewDevice("mic", 48000)
	d := audiotest.NewDriver(dev)

	var reported []string
	c, err := audio.StartCapture(d, dev, audio.ConfigOptions{}, func(e *audio.StreamError) {
		reported = append(reported, e.Message)
	})
	require.NoError(t, err)
	defer c.Close()

	s := dev.LastStream()
	s.Fail("alsa: htstamp mode unsupported")
	s.Fail("device unplugged")
	s.Fail("poll() failed")

	assert.Equal(t, []string{"device unplugged"}, reported)
	assert.Equal(t, uint64(2), c.SuppressedErrors())
}

func TestSyntheticCapture(t *testing.T) {
	for _, format := range []audio.SampleFormat{audio.FormatF32, audio.FormatI16, audio.FormatU16} {
		t.Run(format.String(), func(t *testing.T) {
			d := audio.SyntheticDriver{Tones: []float64{440, 1000}, SampleRate: 8000, Channels: 2}

			devices, err := audio.ListInputDevices(d)
			require.NoError(t, err)
			require.Len(t, devices, 2)
			assert.Equal(t, "Sine 440 Hz", devices[0].Name())
			assert.Equal(t, "Sine 1000 Hz", devices[1].Name())

			c, err := audio.StartCapture(d, devices[1], audio.ConfigOptions{PreferredFormat: format}, nil)
			require.NoError(t, err)
			assert.Equal(t, format, c.Config().Format)

			require.Eventually(t, func() bool {
				return c.Buffer().Len() >= 400
			}, 2*time.Second, 5*time.Millisecond)

			samples := make([]float32, 400)
			c.Buffer().PopInto(samples)
			for _, s := range samples {
				assert.LessOrEqual(t, s, float32(0.81))
				assert.GreaterOrEqual(t, s, float32(-0.81))
			}

			require.NoError(t, c.Close())
		})
	}
}

func TestSyntheticDriverRejectsBadTone(t *testing.T) {
	d := audio.SyntheticDriver{Tones: []float64{30000}, SampleRate: 48000}
	_, err := audio.ListInputDevices(d)
	assert.Error(t, err)
}
