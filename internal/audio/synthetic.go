// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultSyntheticFrequency  = 440.0
	DefaultSyntheticSampleRate = 48000
	syntheticPeriod            = 10 * time.Millisecond
	syntheticAmplitude         = 0.8
	syntheticHostName          = "Synthetic"
)

// SyntheticDriver produces sine tones in real time. Each frequency in Tones
// is exposed as its own input device.
type SyntheticDriver struct {
	Tones      []float64
	SampleRate uint32
	Channels   int
}

func (SyntheticDriver) Name() string { return "synthetic" }

func (d SyntheticDriver) Hosts() ([]Host, error) {
	h, err := d.DefaultHost()
	if err != nil {
		return nil, err
	}
	return []Host{h}, nil
}

func (d SyntheticDriver) DefaultHost() (Host, error) {
	rate := d.SampleRate
	if rate == 0 {
		rate = DefaultSyntheticSampleRate
	}
	channels := max(d.Channels, 1)
	tones := d.Tones
	if len(tones) == 0 {
		tones = []float64{DefaultSyntheticFrequency}
	}

	h := &synthHost{}
	for _, f := range tones {
		if f <= 0 || f >= float64(rate)/2 {
			return nil, fmt.Errorf("synthetic tone %.1f Hz outside (0, %d) Hz", f, rate/2)
		}
		h.devices = append(h.devices, &synthDevice{frequency: f, rate: rate, channels: channels})
	}
	return h, nil
}

type synthHost struct {
	devices []*synthDevice
}

func (h *synthHost) Name() string { return syntheticHostName }

func (h *synthHost) InputDevices() ([]Device, error) {
	out := make([]Device, len(h.devices))
	for i, d := range h.devices {
		out[i] = d
	}
	return out, nil
}

func (h *synthHost) DefaultInputDevice() (Device, error) {
	if len(h.devices) == 0 {
		return nil, ErrNoInputDevice
	}
	return h.devices[0], nil
}

type synthDevice struct {
	frequency float64
	rate      uint32
	channels  int
}

func (d *synthDevice) Name() string     { return fmt.Sprintf("Sine %.0f Hz", d.frequency) }
func (d *synthDevice) HostName() string { return syntheticHostName }

// DefaultInputConfig honours the preferred format, since the generator can
// produce any supported encoding.
func (d *synthDevice) DefaultInputConfig(opts ConfigOptions) (StreamConfig, error) {
	channels := d.channels
	if opts.MaxChannels > 0 && channels > opts.MaxChannels {
		channels = opts.MaxChannels
	}
	switch opts.PreferredFormat {
	case FormatF32, FormatI16, FormatU16:
	default:
		return StreamConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.PreferredFormat)
	}
	return StreamConfig{SampleRate: d.rate, Channels: channels, Format: opts.PreferredFormat}, nil
}

func (d *synthDevice) OpenInputStream(cfg StreamConfig, sink *Downmixer, _ ErrorReporter) (Stream, error) {
	frames := int(cfg.SampleRate) * int(syntheticPeriod) / int(time.Second)
	if frames == 0 {
		return nil, fmt.Errorf("sample rate %d too low for synthetic stream", cfg.SampleRate)
	}
	s := &synthStream{
		cfg:   cfg,
		sink:  sink,
		step:  2 * math.Pi * d.frequency / float64(cfg.SampleRate),
		stop:  make(chan struct{}),
		frame: make([]float32, frames),
	}
	n := frames * cfg.Channels
	switch cfg.Format {
	case FormatF32:
		s.f32 = make([]float32, n)
	case FormatI16:
		s.i16 = make([]int16, n)
	case FormatU16:
		s.u16 = make([]uint16, n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}
	return s, nil
}

type synthStream struct {
	cfg   StreamConfig
	sink  *Downmixer
	step  float64
	phase float64

	frame []float32
	f32   []float32
	i16   []int16
	u16   []uint16

	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func (s *synthStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("synthetic stream closed")
	}
	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *synthStream) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(syntheticPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.generate()
		}
	}
}

// generate renders one period of interleaved samples and hands it to the
// sink, the way a device callback would.
func (s *synthStream) generate() {
	for i := range s.frame {
		s.frame[i] = float32(syntheticAmplitude * math.Sin(s.phase))
		s.phase += s.step
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}

	ch := s.cfg.Channels
	switch s.cfg.Format {
	case FormatF32:
		for i, v := range s.frame {
			for c := 0; c < ch; c++ {
				s.f32[i*ch+c] = v
			}
		}
		s.sink.WriteF32(s.f32)
	case FormatI16:
		for i, v := range s.frame {
			for c := 0; c < ch; c++ {
				s.i16[i*ch+c] = int16(v * 32767)
			}
		}
		s.sink.WriteI16(s.i16)
	case FormatU16:
		for i, v := range s.frame {
			for c := 0; c < ch; c++ {
				s.u16[i*ch+c] = uint16(v*32767 + 32768)
			}
		}
		s.sink.WriteU16(s.u16)
	}
}

func (s *synthStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
