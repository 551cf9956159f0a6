// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualizer/pkg/utils"
)

func TestBandLevels(t *testing.T) {
	// 8 bins at 16 Hz: bin i is i Hz.
	f := SpectralFrame{5, 1, 1, 3, 3, 3, 4, 0}
	bands := []Band{
		{Name: "low", LowHz: 1, HighHz: 3},
		{Name: "mid", LowHz: 3, HighHz: 6},
		{Name: "top", LowHz: 6, HighHz: math.Inf(1)},
		{Name: "none", LowHz: 100, HighHz: 200},
	}
	dst := make([]float32, len(bands))
	BandLevels(dst, f, 16, bands)

	assert.InDelta(t, 1, dst[0], 1e-6)
	assert.InDelta(t, 3, dst[1], 1e-6)
	assert.InDelta(t, math.Sqrt(8), dst[2], 1e-6)
	assert.Zero(t, dst[3])
}

func TestBandLevels_ToneLandsInItsBand(t *testing.T) {
	const rate = 48000
	s, err := NewSpectrum(WindowSize, Hann)
	require.NoError(t, err)
	frame := make(SpectralFrame, FrameSize)
	s.Compute(frame, utils.GenerateSineWave(WindowSize, rate, 150))

	dst := make([]float32, len(DefaultBands))
	BandLevels(dst, frame, rate, DefaultBands)

	loudest := 0
	for i := range dst {
		if dst[i] > dst[loudest] {
			loudest = i
		}
	}
	assert.Equal(t, "bass", DefaultBands[loudest].Name)
}

func TestOnsetDetector(t *testing.T) {
	d := NewOnsetDetector()
	quiet := SpectralFrame{0, 0.1, 0.1}
	loud := SpectralFrame{0, 4, 4}

	assert.False(t, d.Detect(quiet), "below threshold")
	assert.True(t, d.Detect(loud), "jump from quiet")
	assert.False(t, d.Detect(loud), "sustained level is not an onset")
	assert.False(t, d.Detect(quiet))
	assert.True(t, d.Detect(loud))
}

func TestEnergy(t *testing.T) {
	assert.Zero(t, Energy(nil))
	assert.Zero(t, Energy(SpectralFrame{7}))
	assert.InDelta(t, 2.5, Energy(SpectralFrame{100, 3, 4, 0, 0}), 1e-9)
}
