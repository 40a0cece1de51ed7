package pitch

// PeakAnalyzer marks one analysis grain center per input period. The marks
// feed the PSOLA shifter, which relocates grains centered on them.
//
// The first mark is the strongest extremum inside the first period; each
// following mark is the strongest extremum inside a window of ±period/4
// around the predicted next position, keeping marks pitch-synchronous even
// when the waveform's largest excursion drifts within the cycle.
type PeakAnalyzer struct {
	peaks []int
}

func NewPeakAnalyzer() *PeakAnalyzer {
	return &PeakAnalyzer{peaks: make([]int, 0, 64)}
}

// AnalyzeGrains returns the grain centers for the block. The returned slice
// is reused across calls.
func (p *PeakAnalyzer) AnalyzeGrains(input []float32, period int) []int {
	p.peaks = p.peaks[:0]

	if period < 1 || len(input) == 0 {
		return p.peaks
	}
	if period > len(input) {
		period = len(input)
	}

	first := strongestExtremum(input, 0, period)
	p.peaks = append(p.peaks, first)

	quarter := period / 4
	if quarter < 1 {
		quarter = 1
	}

	for {
		predicted := p.peaks[len(p.peaks)-1] + period

		lo := predicted - quarter
		hi := predicted + quarter + 1
		if lo < 0 {
			lo = 0
		}
		if hi > len(input) {
			hi = len(input)
		}
		if lo >= len(input) || hi <= lo {
			break
		}

		p.peaks = append(p.peaks, strongestExtremum(input, lo, hi))
	}

	return p.peaks
}

func strongestExtremum(input []float32, lo, hi int) int {
	best := lo
	bestMag := abs32(input[lo])
	for i := lo + 1; i < hi; i++ {
		if mag := abs32(input[i]); mag > bestMag {
			bestMag = mag
			best = i
		}
	}
	return best
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
