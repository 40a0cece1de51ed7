package pitch

import (
	"math"
	"testing"

	"github.com/msameen99/imogen/pkg/dsp/analysis"
)

func TestShifterMovesSineToTargetFrequency(t *testing.T) {
	const (
		sampleRate = 44100.0
		inFreq     = 220.0
		blockSize  = 1102
		maxPeriod  = 551
	)

	tests := []struct {
		name    string
		outFreq float64
	}{
		{"unison", 220.0},
		{"fifth up", 330.0},
		{"octave up", 440.0},
		{"fourth down", 165.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShifter()
			if err := s.Prepare(blockSize, maxPeriod); err != nil {
				t.Fatal(err)
			}

			pa := NewPeakAnalyzer()
			inPeriod := int(math.Round(sampleRate / inFreq))
			outPeriod := sampleRate / tt.outFreq

			var rendered []float32
			out := make([]float32, blockSize)
			for block := 0; block < 24; block++ {
				in := sineFrame(inFreq, sampleRate, blockSize, float64(block*blockSize))
				peaks := pa.AnalyzeGrains(in, inPeriod)
				s.Process(in, peaks, inPeriod, outPeriod, out)
				if block >= 8 {
					rendered = append(rendered, out...)
				}
			}

			if analysis.Peak(rendered) < 0.05 {
				t.Fatal("shifted output is close to silent")
			}

			an, err := analysis.NewSpectrumAnalyzer(8192, sampleRate)
			if err != nil {
				t.Fatal(err)
			}

			got := an.DominantFrequency(rendered)
			if relErr := math.Abs(got-tt.outFreq) / tt.outFreq; relErr > 0.06 {
				t.Errorf("dominant frequency %f, want %f (err %.1f%%)", got, tt.outFreq, relErr*100)
			}
		})
	}
}

func TestShifterSilentOnNoPeaks(t *testing.T) {
	s := NewShifter()
	if err := s.Prepare(512, 256); err != nil {
		t.Fatal(err)
	}

	in := make([]float32, 512)
	out := make([]float32, 512)
	out[0] = 42

	s.Process(in, nil, 200, 200, out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %f, want 0", i, v)
		}
	}
}
