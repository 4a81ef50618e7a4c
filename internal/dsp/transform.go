package dsp

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// powerFloor keeps log10 finite for empty bins.
const powerFloor = 1e-10

// Transformer applies a symmetric Hann window to a block and computes its
// complex DFT. Coefficients are returned in natural order (DC at index 0).
type Transformer struct {
	window []float64
}

// NewTransformer precomputes the window for blocks of size samples.
func NewTransformer(size int) *Transformer {
	return &Transformer{window: window.Hann(size)}
}

// Size returns the block size the transformer expects.
func (t *Transformer) Size() int {
	return len(t.window)
}

// Transform windows the samples (I and Q alike) and returns the DFT.
func (t *Transformer) Transform(samples []complex128) ([]complex128, error) {
	if len(samples) != len(t.window) {
		return nil, fmt.Errorf("block size mismatch: got %d samples, want %d", len(samples), len(t.window))
	}

	windowed := make([]complex128, len(samples))
	for i, s := range samples {
		w := t.window[i]
		windowed[i] = complex(real(s)*w, imag(s)*w)
	}

	return fft.FFT(windowed), nil
}

// PowerSpectrum converts DFT coefficients to power in dB:
// 10*log10(re^2 + im^2 + 1e-10).
func PowerSpectrum(coeffs []complex128) []float32 {
	power := make([]float32, len(coeffs))
	for i, c := range coeffs {
		re, im := real(c), imag(c)
		power[i] = float32(10 * math.Log10(re*re+im*im+powerFloor))
	}
	return power
}
