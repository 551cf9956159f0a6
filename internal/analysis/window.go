// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before the FFT.
type WindowFunc int

// Available window functions. Hann is the default.
const (
	Hann WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hamming
	Lanczos
	Nuttall
)

// windowTable is indexed by WindowFunc.
var windowTable = [...]struct {
	name  string
	apply func([]float64) []float64
}{
	Hann:            {"hann", window.Hann},
	BartlettHann:    {"bartletthann", window.BartlettHann},
	Blackman:        {"blackman", window.Blackman},
	BlackmanNuttall: {"blackmannuttall", window.BlackmanNuttall},
	Hamming:         {"hamming", window.Hamming},
	Lanczos:         {"lanczos", window.Lanczos},
	Nuttall:         {"nuttall", window.Nuttall},
}

func (w WindowFunc) valid() bool { return w >= 0 && int(w) < len(windowTable) }

func (w WindowFunc) String() string {
	if !w.valid() {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowTable[w].name
}

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. An empty
// name or "hanning" selects Hann. Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "hanning":
		return Hann, nil
	}
	for w, entry := range windowTable {
		if entry.name == name {
			return WindowFunc(w), nil
		}
	}
	return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
}

// Coefficients returns the n window coefficients for w. The Hann window is
// the symmetric form 0.5*(1-cos(2*pi*i/(n-1))). Unknown values use Hann.
func Coefficients(w WindowFunc, n int) []float64 {
	coeffs := make([]float64, n)
	// gonum windows scale their input in place.
	for i := range coeffs {
		coeffs[i] = 1
	}
	if !w.valid() {
		w = Hann
	}
	return windowTable[w].apply(coeffs)
}
