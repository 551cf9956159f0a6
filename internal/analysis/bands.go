// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is a named frequency range [LowHz, HighHz).
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the audible range in six bands. The last band runs up
// to Nyquist.
var DefaultBands = []Band{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// BandLevels writes the RMS magnitude of each band of f into dst, which must
// have len(bands) elements. Bands without any bin read 0.
func BandLevels(dst []float32, f SpectralFrame, sampleRate uint32, bands []Band) {
	for i, band := range bands {
		var energy float64
		var n int
		for bin := range f {
			freq := f.FrequencyForBin(bin, sampleRate)
			if freq < band.LowHz || freq >= band.HighHz {
				continue
			}
			energy += float64(f[bin]) * float64(f[bin]) // magnitude squared
			n++
		}
		if n == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = float32(math.Sqrt(energy / float64(n)))
	}
}
