// SPDX-License-Identifier: MIT
package analysis

// SpectralFrame holds the magnitudes of the lower half of one FFT window.
// Bin i covers frequency i*sampleRate/WindowSize. A frame is never modified
// after it has been published.
type SpectralFrame []float32

// FrequencyForBin returns the centre frequency (Hz) of bin for a frame
// computed at sampleRate. Out of range bins return 0.
func (f SpectralFrame) FrequencyForBin(bin int, sampleRate uint32) float64 {
	if bin < 0 || bin >= len(f) {
		return 0
	}
	return float64(bin) * float64(sampleRate) / float64(2*len(f))
}

// Peak returns the index and magnitude of the strongest bin, ignoring DC.
// It returns -1 for frames with fewer than two bins.
func (f SpectralFrame) Peak() (int, float32) {
	if len(f) < 2 {
		return -1, 0
	}
	bin, mag := 1, f[1]
	for i := 2; i < len(f); i++ {
		if f[i] > mag {
			bin, mag = i, f[i]
		}
	}
	return bin, mag
}
