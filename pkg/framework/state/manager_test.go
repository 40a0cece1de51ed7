package state

import (
	"bytes"
	"strings"
	"testing"

	"github.com/msameen99/imogen/pkg/framework/param"
)

func testRegistry() *param.Registry {
	r := param.NewRegistry()
	r.Add(
		param.New(0, "Input Gain").Key("inputGain").Range(-60, 0).Default(0).Build(),
		param.New(1, "Dry Pan").Key("dryPan").Range(0, 127).Default(64).Steps(128).Build(),
		param.New(2, "Limiter").Key("limiterIsOn").Toggle().Default(1).Build(),
	)
	return r
}

func TestStateRoundTrip(t *testing.T) {
	reg := testRegistry()
	m := NewManager(reg)
	m.NumberOfVoices = 7
	m.ModulatorInputSource = 2

	reg.Get(0).SetPlainValue(-12.5)
	reg.Get(1).SetPlainValue(32)
	reg.Get(2).SetPlainValue(0)

	var buf bytes.Buffer
	if err := m.Save(&buf, "bright"); err != nil {
		t.Fatal(err)
	}

	// Restore into a fresh registry.
	reg2 := testRegistry()
	m2 := NewManager(reg2)
	if err := m2.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}

	if m2.NumberOfVoices != 7 {
		t.Errorf("numberOfVoices = %d, want 7", m2.NumberOfVoices)
	}
	if m2.ModulatorInputSource != 2 {
		t.Errorf("modulatorInputSource = %d, want 2", m2.ModulatorInputSource)
	}

	if got := reg2.Get(0).GetPlainValue(); got < -12.6 || got > -12.4 {
		t.Errorf("inputGain = %f, want -12.5", got)
	}
	if got := reg2.Get(1).GetIntValue(); got != 32 {
		t.Errorf("dryPan = %d, want 32", got)
	}
	if reg2.Get(2).GetBoolValue() {
		t.Error("limiter should load as off")
	}
}

func TestMalformedXMLLeavesStateUntouched(t *testing.T) {
	reg := testRegistry()
	m := NewManager(reg)
	m.NumberOfVoices = 5
	reg.Get(1).SetPlainValue(100)

	err := m.Load(strings.NewReader("<ImogenState numberOfVoices=\"9\"><param"))
	if err == nil {
		t.Fatal("expected parse error")
	}

	if m.NumberOfVoices != 5 {
		t.Errorf("numberOfVoices = %d, want untouched 5", m.NumberOfVoices)
	}
	if got := reg.Get(1).GetIntValue(); got != 100 {
		t.Errorf("dryPan = %d, want untouched 100", got)
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	reg := testRegistry()
	m := NewManager(reg)

	doc := `<ImogenState numberOfVoices="4" modulatorInputSource="0">
  <param id="doesNotExist" value="1"></param>
  <param id="dryPan" value="90"></param>
</ImogenState>`

	if err := m.Load(strings.NewReader(doc)); err != nil {
		t.Fatal(err)
	}
	if got := reg.Get(1).GetIntValue(); got != 90 {
		t.Errorf("dryPan = %d, want 90", got)
	}
}
