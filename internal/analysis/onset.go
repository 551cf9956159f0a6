// SPDX-License-Identifier: MIT
package analysis

import "math"

// Onset detection defaults.
const (
	DefaultOnsetThreshold = 1.0
	DefaultOnsetRatio     = 1.5
)

// OnsetDetector flags frames whose spectral energy jumps above the previous
// frame's by more than Ratio, for example a kick drum hit. It is not safe for
// concurrent use.
type OnsetDetector struct {
	Threshold float64 // Minimum energy for an onset.
	Ratio     float64 // Minimum increase over the previous frame.

	last float64
}

// NewOnsetDetector returns a detector with the default threshold and ratio.
func NewOnsetDetector() *OnsetDetector {
	return &OnsetDetector{Threshold: DefaultOnsetThreshold, Ratio: DefaultOnsetRatio}
}

// Detect reports whether f starts an onset and remembers its energy.
func (d *OnsetDetector) Detect(f SpectralFrame) bool {
	energy := Energy(f)
	onset := energy > d.Threshold && (d.last == 0 || energy/d.last > d.Ratio)
	d.last = energy
	return onset
}

// Energy returns the RMS magnitude of f, ignoring DC.
func Energy(f SpectralFrame) float64 {
	if len(f) < 2 {
		return 0
	}
	var sum float64
	for _, m := range f[1:] {
		sum += float64(m) * float64(m)
	}
	return math.Sqrt(sum / float64(len(f)-1))
}
