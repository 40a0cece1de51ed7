package gain

import (
	"math"
	"testing"
)

func TestDbConversions(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1.0},
		{-6.0206, 0.5},
		{-20, 0.1},
		{-96, 0},
		{-200, 0},
	}

	for _, tt := range tests {
		if got := DbToLinear(tt.db); math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("DbToLinear(%f) = %f, want %f", tt.db, got, tt.want)
		}
	}

	if got := LinearToDb(1.0); math.Abs(got) > 1e-9 {
		t.Errorf("LinearToDb(1) = %f, want 0", got)
	}
	if got := LinearToDb(0); got != MinDB {
		t.Errorf("LinearToDb(0) = %f, want MinDB", got)
	}
}

func TestRampEndpoints(t *testing.T) {
	buf := make([]float32, 100)
	for i := range buf {
		buf[i] = 1
	}

	Ramp(buf, 0, 1)
	if buf[0] != 0 {
		t.Errorf("ramp start = %f, want 0", buf[0])
	}
	if math.Abs(float64(buf[99]-1)) > 1e-6 {
		t.Errorf("ramp end = %f, want 1", buf[99])
	}
	if buf[50] <= buf[10] {
		t.Error("ramp not increasing")
	}
}

func TestRampTo(t *testing.T) {
	src := []float32{1, 1, 1, 1}
	dst := make([]float32, 4)

	RampTo(src, dst, 2, 2)
	for i, v := range dst {
		if v != 2 {
			t.Errorf("dst[%d] = %f, want 2", i, v)
		}
	}
}
