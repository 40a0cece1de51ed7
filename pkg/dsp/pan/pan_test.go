package pan

import (
	"math"
	"testing"
)

func TestGainsForMidiPanEndpoints(t *testing.T) {
	left, right := GainsForMidiPan(0)
	if left != 1.0 || right != 0.0 {
		t.Errorf("hard left = (%f, %f), want (1, 0)", left, right)
	}

	left, right = GainsForMidiPan(127)
	if math.Abs(float64(left)) > 1e-6 || math.Abs(float64(right)-1.0) > 1e-6 {
		t.Errorf("hard right = (%f, %f), want (0, 1)", left, right)
	}

	left, right = GainsForMidiPan(64)
	if math.Abs(float64(left-right)) > 0.01 {
		t.Errorf("center gains differ too much: %f vs %f", left, right)
	}

	// Constant power: squares sum to one everywhere.
	for pan := 0; pan <= 127; pan += 7 {
		l, r := GainsForMidiPan(pan)
		sum := float64(l*l + r*r)
		if math.Abs(sum-1.0) > 1e-5 {
			t.Errorf("pan %d: power = %f, want 1", pan, sum)
		}
	}
}

func TestMidiPannerRampsBetweenPositions(t *testing.T) {
	p := NewMidiPanner()
	p.Reset(0)

	src := make([]float32, 64)
	for i := range src {
		src[i] = 1.0
	}
	left := make([]float32, 64)
	right := make([]float32, 64)

	p.SetMidiPan(127)
	p.ApplyTo(src, left, right)

	if left[0] < 0.99 {
		t.Errorf("ramp start left gain = %f, want ~1", left[0])
	}
	if right[63] < 0.99 {
		t.Errorf("ramp end right gain = %f, want ~1", right[63])
	}

	// Second block: ramp collapsed, steady at the new position.
	p.ApplyTo(src, left, right)
	if left[0] > 1e-5 || right[0] < 0.99 {
		t.Errorf("steady state = (%f, %f), want (0, 1)", left[0], right[0])
	}
}
