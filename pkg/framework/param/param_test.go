package param

import (
	"testing"
)

func TestParameterNormalization(t *testing.T) {
	p := New(1, "Output Gain").Range(-60, 0).Default(-4).Unit("dB").Build()

	if got := p.GetPlainValue(); got < -4.01 || got > -3.99 {
		t.Errorf("default plain value = %f, want -4", got)
	}

	p.SetPlainValue(-30)
	if got := p.GetValue(); got < 0.499 || got > 0.501 {
		t.Errorf("normalized = %f, want 0.5", got)
	}

	p.SetPlainValue(-999)
	if got := p.GetPlainValue(); got != -60 {
		t.Errorf("clamped plain = %f, want -60", got)
	}
}

func TestParameterIntAndBool(t *testing.T) {
	p := New(2, "Dry Pan").Range(0, 127).Default(64).Steps(128).Build()
	if got := p.GetIntValue(); got != 64 {
		t.Errorf("int value = %d, want 64", got)
	}

	toggle := New(3, "Limiter").Toggle().Default(1).Build()
	if !toggle.GetBoolValue() {
		t.Error("toggle default should be on")
	}
	toggle.SetValue(0)
	if toggle.GetBoolValue() {
		t.Error("toggle should be off")
	}
}

func TestChoiceParameter(t *testing.T) {
	p := Choice(4, "Vocal Range", []ChoiceOption{
		{Value: 0, Name: "Soprano"},
		{Value: 1, Name: "Alto"},
		{Value: 2, Name: "Tenor"},
		{Value: 3, Name: "Bass"},
	}).Build()

	if got := p.FormatValue(p.Normalize(2)); got != "Tenor" {
		t.Errorf("format = %q, want Tenor", got)
	}

	norm, err := p.ParseValue("bass")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.Denormalize(norm); got != 3 {
		t.Errorf("parsed plain = %f, want 3", got)
	}

	if _, err := p.ParseValue("baritone"); err == nil {
		t.Error("expected parse error for unknown option")
	}
}

func TestRegistryOrderAndDefaults(t *testing.T) {
	r := NewRegistry()
	r.Add(
		New(10, "A").Range(0, 10).Default(5).Build(),
		New(11, "B").Toggle().Build(),
		New(10, "A duplicate").Build(), // ignored
	)

	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}
	if r.GetByIndex(0).Name != "A" || r.GetByIndex(1).Name != "B" {
		t.Error("registration order not preserved")
	}

	r.Get(10).SetPlainValue(9)
	r.ResetToDefaults()
	if got := r.Get(10).GetPlainValue(); got != 5 {
		t.Errorf("after reset = %f, want 5", got)
	}
}

func TestKeyDefaultsToName(t *testing.T) {
	p := New(5, "Stereo Width").Build()
	if p.Key != "Stereo Width" {
		t.Errorf("key = %q, want name fallback", p.Key)
	}

	keyed := New(6, "Stereo Width").Key("stereoWidth").Build()
	if keyed.Key != "stereoWidth" {
		t.Errorf("key = %q, want stereoWidth", keyed.Key)
	}
}
