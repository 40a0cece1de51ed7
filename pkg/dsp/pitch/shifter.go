package pitch

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

const winTableSize = 4096

// Shifter resynthesizes a pitched input at an arbitrary output period using
// pitch-synchronous overlap-add. Analysis grains are two input periods wide,
// Hann windowed, centered on the marks produced by the PeakAnalyzer, and
// summed at output-period spacing into an overlap buffer that carries grain
// tails across block boundaries.
type Shifter struct {
	blockSize int
	maxPeriod int

	winTable []float32

	ola      []float32
	synthPos float64
}

func NewShifter() *Shifter {
	return &Shifter{}
}

// Prepare sizes the overlap buffer for the given fixed block size and the
// longest detectable period, and bakes the Hann window table.
func (s *Shifter) Prepare(blockSize, maxPeriod int) error {
	if blockSize < 1 || maxPeriod < 1 {
		return fmt.Errorf("psola shifter: invalid sizes block=%d maxPeriod=%d", blockSize, maxPeriod)
	}

	if s.winTable == nil {
		coeffs, err := window.Hann(winTableSize)
		if err != nil {
			return fmt.Errorf("psola shifter: %w", err)
		}
		s.winTable = make([]float32, winTableSize)
		for i, c := range coeffs {
			s.winTable[i] = float32(c)
		}
	}

	s.blockSize = blockSize
	s.maxPeriod = maxPeriod

	needed := blockSize + 3*maxPeriod
	if len(s.ola) != needed {
		s.ola = make([]float32, needed)
	}
	s.Reset()
	return nil
}

// Reset clears carried grain tails and rewinds the synthesis position.
func (s *Shifter) Reset() {
	for i := range s.ola {
		s.ola[i] = 0
	}
	s.synthPos = 0
}

// Process renders one block. input must be blockSize samples, peaks the
// analysis marks for this block, inPeriod the detected (or fallback) input
// period and outPeriod the desired output period, both in samples. The mono
// result overwrites out.
func (s *Shifter) Process(input []float32, peaks []int, inPeriod int, outPeriod float64, out []float32) {
	n := s.blockSize
	if len(input) < n {
		n = len(input)
	}
	if len(out) < n {
		n = len(out)
	}
	if n == 0 {
		return
	}

	if len(peaks) == 0 || inPeriod < 1 || outPeriod < 1 {
		for i := 0; i < n; i++ {
			out[i] = 0
		}
		return
	}

	if inPeriod > s.maxPeriod {
		inPeriod = s.maxPeriod
	}

	// Hann OLA at hop outPeriod with window 2*inPeriod has a DC gain near
	// inPeriod/outPeriod; compensate so shifted notes keep the input level.
	norm := float32(outPeriod) / float32(inPeriod)
	if norm > 2.0 {
		norm = 2.0
	} else if norm < 0.5 {
		norm = 0.5
	}

	base := s.maxPeriod
	grainLen := 2 * inPeriod

	for s.synthPos < float64(n) {
		center := int(s.synthPos + 0.5)
		peak := nearestPeak(peaks, center)

		for j := -inPeriod; j < inPeriod; j++ {
			src := peak + j
			if src < 0 || src >= len(input) {
				continue
			}
			w := s.winAt(j+inPeriod, grainLen)
			s.ola[base+center+j] += input[src] * w * norm
		}

		s.synthPos += outPeriod
	}

	copy(out[:n], s.ola[base:base+n])

	// Slide the overlap buffer so carried tails line up with the next block.
	copy(s.ola, s.ola[n:])
	for i := len(s.ola) - n; i < len(s.ola); i++ {
		s.ola[i] = 0
	}
	s.synthPos -= float64(n)
	if s.synthPos < 0 {
		s.synthPos = 0
	}
}

func (s *Shifter) winAt(i, length int) float32 {
	if length <= 1 {
		return 1
	}
	idx := i * (winTableSize - 1) / (length - 1)
	if idx < 0 {
		idx = 0
	} else if idx >= winTableSize {
		idx = winTableSize - 1
	}
	return s.winTable[idx]
}

func nearestPeak(peaks []int, pos int) int {
	i := sort.SearchInts(peaks, pos)
	if i == 0 {
		return peaks[0]
	}
	if i >= len(peaks) {
		return peaks[len(peaks)-1]
	}
	if pos-peaks[i-1] <= peaks[i]-pos {
		return peaks[i-1]
	}
	return peaks[i]
}
