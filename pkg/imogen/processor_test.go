package imogen

import (
	"bytes"
	"math"
	"testing"

	"github.com/msameen99/imogen/pkg/engine"
	"github.com/msameen99/imogen/pkg/midi"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	p := NewProcessor()
	if err := p.Initialize(44100, 512); err != nil {
		t.Fatal(err)
	}
	return p
}

func stereo(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func TestProcessorInitializeAndLatency(t *testing.T) {
	p := newTestProcessor(t)

	if p.LatencySamples() <= 0 {
		t.Error("latency should be positive")
	}
	if p.NumVoices() != 4 {
		t.Errorf("default voices = %d, want 4", p.NumVoices())
	}
}

func TestProcessorLayoutRule(t *testing.T) {
	p := newTestProcessor(t)

	tests := []struct {
		in, side, out int
		want          bool
	}{
		{2, 0, 2, true},
		{0, 1, 2, true},
		{2, 1, 2, true},
		{0, 0, 2, false},
		{2, 0, 1, false},
		{2, 0, 0, false},
	}

	for _, tt := range tests {
		if got := p.IsLayoutSupported(tt.in, tt.side, tt.out); got != tt.want {
			t.Errorf("layout (%d,%d,%d) = %v, want %v", tt.in, tt.side, tt.out, got, tt.want)
		}
	}
}

func TestProcessorRunsBlocks(t *testing.T) {
	p := newTestProcessor(t)
	q := midi.NewEventQueue()

	sample := 0
	for block := 0; block < 30; block++ {
		in := stereo(512)
		out := stereo(512)
		for i := range in[0] {
			v := float32(math.Sin(2*math.Pi*220*float64(sample)/44100)) * 0.5
			in[0][i] = v
			in[1][i] = v
			sample++
		}
		q.Clear()
		if block == 0 {
			q.Add(midi.NoteOnEvent{BaseEvent: midi.BaseEvent{EventChannel: 1}, NoteNumber: 64, Velocity: 100})
		}
		p.ProcessBlock(in, nil, out, q)

		for _, ch := range out {
			for i, v := range ch {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					t.Fatalf("block %d: non-finite output at %d", block, i)
				}
			}
		}
	}
}

func TestProcessorDoublePrecisionPath(t *testing.T) {
	p := newTestProcessor(t)
	q := midi.NewEventQueue()

	in := [][]float64{make([]float64, 256), make([]float64, 256)}
	out := [][]float64{make([]float64, 256), make([]float64, 256)}
	for i := range in[0] {
		in[0][i] = math.Sin(2*math.Pi*220*float64(i)/44100) * 0.5
		in[1][i] = in[0][i]
	}

	p.ProcessBlock64(in, nil, out, q)

	for _, ch := range out {
		for i, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite output at %d", i)
			}
		}
	}
}

func TestProcessorStateRoundTrip(t *testing.T) {
	p := newTestProcessor(t)

	p.Parameters().Get(ParamDryPan).SetPlainValue(20)
	p.Parameters().Get(ParamPedalPitchToggle).SetPlainValue(1)
	p.Parameters().Get(ParamConcertPitch).SetPlainValue(432)
	if err := p.SetNumVoices(6); err != nil {
		t.Fatal(err)
	}
	p.SetModulatorSource(engine.ModulatorMixToMono)

	var buf bytes.Buffer
	if err := p.SaveState(&buf); err != nil {
		t.Fatal(err)
	}

	p2 := newTestProcessor(t)
	if err := p2.LoadState(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}

	if got := p2.Parameters().Get(ParamDryPan).GetIntValue(); got != 20 {
		t.Errorf("dryPan = %d, want 20", got)
	}
	if !p2.Parameters().Get(ParamPedalPitchToggle).GetBoolValue() {
		t.Error("pedal toggle lost")
	}
	if got := p2.Parameters().Get(ParamConcertPitch).GetIntValue(); got != 432 {
		t.Errorf("concertPitch = %d, want 432", got)
	}
	if p2.NumVoices() != 6 {
		t.Errorf("voices = %d, want 6", p2.NumVoices())
	}
	if p2.Engine().ModulatorSource() != engine.ModulatorMixToMono {
		t.Error("modulator source lost")
	}
	if p2.Engine().Harmonizer().NumVoices() != 6 {
		t.Error("loaded voice count not applied to engine")
	}
}

func TestVocalRangeChangesLatency(t *testing.T) {
	p := newTestProcessor(t)
	q := midi.NewEventQueue()

	sopranoLatency := p.LatencySamples()

	p.Parameters().Get(ParamVocalRange).SetPlainValue(float64(VocalRangeBass))
	// The change is picked up at the next block's parameter snapshot.
	in := stereo(256)
	out := stereo(256)
	p.ProcessBlock(in, nil, out, q)

	if got := p.LatencySamples(); got <= sopranoLatency {
		t.Errorf("bass latency %d should exceed soprano latency %d", got, sopranoLatency)
	}
}

func TestVocalRangePresets(t *testing.T) {
	tests := []struct {
		r          VocalRange
		minLo, minHi int
	}{
		{VocalRangeSoprano, 210, 230},
		{VocalRangeAlto, 140, 150},
		{VocalRangeTenor, 90, 105},
		{VocalRangeBass, 60, 70},
	}

	for _, tt := range tests {
		minHz, maxHz := tt.r.HzRange()
		if minHz < tt.minLo || minHz > tt.minHi {
			t.Errorf("%s minHz = %d, want in [%d, %d]", tt.r, minHz, tt.minLo, tt.minHi)
		}
		if maxHz <= minHz {
			t.Errorf("%s range inverted", tt.r)
		}
	}
}

func TestSidechainMissingClearsOutput(t *testing.T) {
	p := newTestProcessor(t)
	p.Buses().SetSidechainActive(true)
	q := midi.NewEventQueue()

	in := stereo(128)
	out := stereo(128)
	out[0][5] = 1.0

	p.ProcessBlock(in, nil, out, q)

	for _, ch := range out {
		for i, v := range ch {
			if v != 0 {
				t.Fatalf("output[%d] = %f, want cleared block", i, v)
			}
		}
	}
}
