package envelope

import (
	"testing"
)

func TestADSRReachesFullLevelAndReleases(t *testing.T) {
	env := New(44100)
	env.SetADSR(0.01, 0.01, 0.7, 0.05)

	env.Trigger()
	if !env.IsActive() {
		t.Fatal("envelope inactive after trigger")
	}

	var peak float32
	for i := 0; i < 44100; i++ {
		v := env.Next()
		if v > peak {
			peak = v
		}
	}
	if peak < 0.99 {
		t.Errorf("peak = %f, want ~1.0", peak)
	}
	if got := env.Next(); got < 0.69 || got > 0.71 {
		t.Errorf("sustain level = %f, want ~0.7", got)
	}

	env.Release()
	for i := 0; i < 44100; i++ {
		env.Next()
	}
	if env.IsActive() {
		t.Error("envelope still active one second after release")
	}
}

func TestQuickReleaseIsFasterThanConfigured(t *testing.T) {
	slow := New(44100)
	slow.SetADSR(0.001, 0.001, 1.0, 0.5)
	quick := New(44100)
	quick.SetADSR(0.001, 0.001, 1.0, 0.5)

	for _, e := range []*ADSR{slow, quick} {
		e.Trigger()
		for i := 0; i < 4410; i++ {
			e.Next()
		}
	}

	slow.Release()
	quick.ReleaseQuick(0.005)

	samplesToIdle := func(e *ADSR) int {
		for i := 0; i < 44100; i++ {
			e.Next()
			if !e.IsActive() {
				return i
			}
		}
		return 44100
	}

	quickSamples := samplesToIdle(quick)
	slowSamples := samplesToIdle(slow)

	if quickSamples >= slowSamples {
		t.Errorf("quick release (%d samples) not faster than configured release (%d)", quickSamples, slowSamples)
	}
	if quickSamples > 4410 {
		t.Errorf("quick release took %d samples, want well under 100ms", quickSamples)
	}
}

func TestTriggerQuickRestartsFromCurrentValue(t *testing.T) {
	env := New(44100)
	env.SetADSR(0.5, 0.01, 0.8, 0.1)

	env.Trigger()
	for i := 0; i < 100; i++ {
		env.Next()
	}
	before := env.Value()

	env.TriggerQuick(0.005)
	after := env.Next()

	// The quick attack resumes from the current level; no reset to zero.
	if float64(after) < before {
		t.Errorf("quick retrigger dropped level: %f -> %f", before, after)
	}
}
