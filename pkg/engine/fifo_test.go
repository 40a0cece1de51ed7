package engine

import (
	"testing"
)

func TestAudioFIFOPushPop(t *testing.T) {
	f := NewAudioFIFO(1, 16)

	in := []float32{1, 2, 3, 4}
	f.Push([][]float32{in}, 4)

	if f.NumStoredSamples() != 4 {
		t.Fatalf("stored = %d, want 4", f.NumStoredSamples())
	}

	out := make([]float32, 4)
	f.Pop([][]float32{out}, 4)
	for i, want := range in {
		if out[i] != want {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want)
		}
	}
	if f.NumStoredSamples() != 0 {
		t.Errorf("stored = %d after pop, want 0", f.NumStoredSamples())
	}
}

func TestAudioFIFOUnderflowZeroPads(t *testing.T) {
	f := NewAudioFIFO(1, 16)
	f.Push([][]float32{{5, 6}}, 2)

	out := []float32{9, 9, 9, 9}
	f.Pop([][]float32{out}, 4)

	if out[0] != 5 || out[1] != 6 || out[2] != 0 || out[3] != 0 {
		t.Errorf("out = %v, want [5 6 0 0]", out)
	}
}

func TestAudioFIFOWrapsAround(t *testing.T) {
	f := NewAudioFIFO(1, 8)
	out := make([]float32, 6)

	for round := 0; round < 5; round++ {
		in := []float32{1, 2, 3, 4, 5, 6}
		for i := range in {
			in[i] += float32(round * 10)
		}
		f.Push([][]float32{in}, 6)
		f.Pop([][]float32{out}, 6)
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("round %d: out[%d] = %f, want %f", round, i, out[i], in[i])
			}
		}
	}
}

func TestAudioFIFOMonoFansOutToStereo(t *testing.T) {
	f := NewAudioFIFO(2, 8)
	mono := []float32{1, 2, 3}
	f.Push([][]float32{mono}, 3)

	left := make([]float32, 3)
	right := make([]float32, 3)
	f.Pop([][]float32{left, right}, 3)

	for i := range mono {
		if left[i] != mono[i] || right[i] != mono[i] {
			t.Errorf("sample %d: (%f, %f), want both %f", i, left[i], right[i], mono[i])
		}
	}
}
