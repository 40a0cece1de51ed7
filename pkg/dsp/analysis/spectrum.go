// Package analysis provides FFT-based spectral measurements. The harmonizer
// itself is purely time-domain; this package backs the synthesis tests. The
// intonation readout comes from the pitch detector, not from this package.
package analysis

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// SpectrumAnalyzer measures the dominant frequency of a signal frame.
type SpectrumAnalyzer struct {
	size       int
	sampleRate float64

	plan *algofft.Plan[complex128]

	windowCoeffs []float64
	frame        []complex128
	spectrum     []complex128
	re           []float64
	im           []float64
	mags         []float64
}

// NewSpectrumAnalyzer creates an analyzer for power-of-two frame sizes.
func NewSpectrumAnalyzer(size int, sampleRate float64) (*SpectrumAnalyzer, error) {
	if size < 4 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum analyzer: frame size must be a power of two, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum analyzer: invalid sample rate %f", sampleRate)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum analyzer: %w", err)
	}

	coeffs, err := window.Hann(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum analyzer: %w", err)
	}

	return &SpectrumAnalyzer{
		size:         size,
		sampleRate:   sampleRate,
		plan:         plan,
		windowCoeffs: coeffs,
		frame:        make([]complex128, size),
		spectrum:     make([]complex128, size),
		re:           make([]float64, size/2),
		im:           make([]float64, size/2),
		mags:         make([]float64, size/2),
	}, nil
}

// DominantFrequency returns the frequency of the strongest spectral peak in
// the first frame-size samples of signal, refined by quadratic interpolation
// of the neighboring bin magnitudes. Returns 0 for silent or short input.
func (a *SpectrumAnalyzer) DominantFrequency(signal []float32) float64 {
	if len(signal) < a.size {
		return 0
	}

	for i := 0; i < a.size; i++ {
		a.frame[i] = complex(float64(signal[i])*a.windowCoeffs[i], 0)
	}

	if err := a.plan.Forward(a.spectrum, a.frame); err != nil {
		return 0
	}

	half := a.size / 2
	for i := 0; i < half; i++ {
		a.re[i] = real(a.spectrum[i])
		a.im[i] = imag(a.spectrum[i])
	}
	vecmath.Magnitude(a.mags, a.re, a.im)

	best := 1
	for i := 2; i < half; i++ {
		if a.mags[i] > a.mags[best] {
			best = i
		}
	}
	if a.mags[best] == 0 {
		return 0
	}

	bin := float64(best)
	if best > 0 && best+1 < half {
		s0, s1, s2 := a.mags[best-1], a.mags[best], a.mags[best+1]
		denom := s0 - 2*s1 + s2
		if denom != 0 {
			bin += 0.5 * (s0 - s2) / denom
		}
	}

	return bin * a.sampleRate / float64(a.size)
}

// RMS returns the root-mean-square level of the signal.
func RMS(signal []float32) float64 {
	if len(signal) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range signal {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(signal)))
}

// Peak returns the absolute peak level of the signal.
func Peak(signal []float32) float64 {
	peak := 0.0
	for _, v := range signal {
		if mag := math.Abs(float64(v)); mag > peak {
			peak = mag
		}
	}
	return peak
}
