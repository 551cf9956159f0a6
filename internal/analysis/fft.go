// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"visualizer/pkg/bitint"
)

const (
	// WindowSize is the number of samples analyzed per frame.
	WindowSize = 1024
	// FrameSize is the number of magnitude bins in a SpectralFrame.
	FrameSize = WindowSize / 2
)

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input  []float64    // Windowed input signal.
	output []complex128 // FFT coefficients, size/2+1.
	window []float64    // Pre-calculated window coefficients.
}

// Spectrum computes windowed magnitude spectra of fixed-size sample blocks.
// A Spectrum is not safe for concurrent use; each analyzer owns one.
type Spectrum struct {
	fft       *fourier.FFT
	size      int
	windowFn  WindowFunc
	workspace fftWorkspace
}

// NewSpectrum prepares an FFT of size points using windowFn.
func NewSpectrum(size int, windowFn WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	return &Spectrum{
		fft:      fourier.NewFFT(size),
		size:     size,
		windowFn: windowFn,
		workspace: fftWorkspace{
			input:  make([]float64, size),
			output: make([]complex128, size/2+1),
			window: Coefficients(windowFn, size),
		},
	}, nil
}

// Size returns the number of input samples per transform.
func (s *Spectrum) Size() int { return s.size }

// Window returns the configured window function.
func (s *Spectrum) Window() WindowFunc { return s.windowFn }

// Compute windows samples, transforms them and writes the magnitudes of the
// first len(dst) bins into dst. samples shorter than Size are zero-padded;
// dst may hold at most Size/2+1 bins. Compute does not allocate.
func (s *Spectrum) Compute(dst []float32, samples []float32) {
	ws := &s.workspace
	for i := range ws.input {
		if i < len(samples) {
			ws.input[i] = float64(samples[i]) * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}

	s.fft.Coefficients(ws.output, ws.input)

	for i := range dst {
		c := ws.output[i]
		dst[i] = float32(math.Hypot(real(c), imag(c)))
	}
}
