// SPDX-License-Identifier: MIT
/*
Package audio captures live input from a platform audio device and feeds it,
downmixed to mono, into a lock-free ring buffer.

Three drivers are available:
  - portaudio: one host per PortAudio host API (ALSA, JACK, CoreAudio, WASAPI...)
  - miniaudio: one host per malgo backend (PulseAudio, ALSA, WASAPI...)
  - synthetic: a generated sine tone, used when no hardware is wanted

Thread Safety:
  - Device callbacks run on a real-time thread owned by the driver.
  - The callback path never blocks, never allocates and never logs.
  - Samples are handed to the consumer only through the ring buffer.
*/
package audio

import (
	"fmt"
	"strings"
)

// SampleFormat is the native sample encoding delivered by a device.
type SampleFormat int

const (
	FormatF32 SampleFormat = iota // 32-bit float in [-1, 1]
	FormatI16                     // signed 16-bit integer
	FormatU16                     // unsigned 16-bit integer, 32768 is silence
)

func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatI16:
		return "i16"
	case FormatU16:
		return "u16"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// ParseSampleFormat converts a config string into a SampleFormat.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "float32", "":
		return FormatF32, nil
	case "i16", "int16", "s16":
		return FormatI16, nil
	case "u16", "uint16":
		return FormatU16, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// StreamConfig is the configuration negotiated with a device.
type StreamConfig struct {
	SampleRate uint32
	Channels   int
	Format     SampleFormat
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %s", c.SampleRate, c.Channels, c.Format)
}

// ConfigOptions tunes how a device's default input configuration is negotiated.
type ConfigOptions struct {
	PreferredFormat SampleFormat
	MaxChannels     int // 0 uses the driver default layout
}
