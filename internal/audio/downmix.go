// SPDX-License-Identifier: MIT
package audio

import "visualizer/internal/ring"

// Downmixer averages interleaved frames to mono and pushes the result into a
// ring buffer. It is owned by a single device callback.
type Downmixer struct {
	channels int
	buffer   *ring.Buffer
}

// NewDownmixer returns a Downmixer for frames of the given channel count.
func NewDownmixer(channels int, buffer *ring.Buffer) *Downmixer {
	if channels < 1 {
		channels = 1
	}
	return &Downmixer{
		channels: channels,
		buffer:   buffer,
	}
}

// Channels returns the interleaved channel count.
func (d *Downmixer) Channels() int { return d.channels }

// Buffer returns the destination ring buffer.
func (d *Downmixer) Buffer() *ring.Buffer { return d.buffer }

// WriteF32 downmixes float32 frames. Trailing partial frames are ignored.
func (d *Downmixer) WriteF32(in []float32) {
	downmix(d, in, func(s float32) float32 { return s })
}

// WriteI16 downmixes signed 16-bit frames.
func (d *Downmixer) WriteI16(in []int16) {
	downmix(d, in, i16ToFloat)
}

// WriteU16 downmixes unsigned 16-bit frames.
func (d *Downmixer) WriteU16(in []uint16) {
	downmix(d, in, u16ToFloat)
}

type sample interface {
	~float32 | ~int16 | ~uint16
}

// downmix is the hot path: no allocations, no locks.
func downmix[T sample](d *Downmixer, in []T, toFloat func(T) float32) {
	ch := d.channels
	div := float32(ch)
	if ch == 1 {
		for _, s := range in {
			d.buffer.Push(toFloat(s))
		}
		return
	}
	for off := 0; off+ch <= len(in); off += ch {
		var sum float32
		for _, s := range in[off : off+ch] {
			sum += toFloat(s)
		}
		d.buffer.Push(sum / div)
	}
}

func i16ToFloat(s int16) float32 {
	return float32(s) / 32768
}

func u16ToFloat(s uint16) float32 {
	return (float32(s) - 32768) / 32768
}
