package engine

import (
	"math"
	"testing"

	"github.com/msameen99/imogen/pkg/midi"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(80, 1100, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(44100, 512, 4); err != nil {
		t.Fatal(err)
	}
	return e
}

func stereoBuffers(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func TestEngineLatencyIsTwoMaxPeriods(t *testing.T) {
	e := newTestEngine(t)

	// 2 * round(44100 / 80)
	if got, want := e.LatencySamples(), 1102; got != want {
		t.Errorf("latency = %d, want %d", got, want)
	}
}

func TestEngineOutputsExactlyInputLength(t *testing.T) {
	e := newTestEngine(t)
	q := midi.NewEventQueue()

	for _, blockSize := range []int{1, 7, 64, 256, 511, 512, 1102, 3000} {
		in := stereoBuffers(blockSize)
		out := stereoBuffers(blockSize)
		for i := 0; i < blockSize; i++ {
			in[0][i] = float32(math.Sin(2 * math.Pi * 220 * float64(i) / 44100))
			in[1][i] = in[0][i]
		}

		q.Clear()
		e.Process(in, out, q, false, false, false)

		for _, ch := range out {
			if len(ch) != blockSize {
				t.Fatalf("block %d: output length %d", blockSize, len(ch))
			}
			for i, v := range ch {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					t.Fatalf("block %d: non-finite sample at %d", blockSize, i)
				}
			}
		}

		for _, ev := range q.AllEvents() {
			if ev.SampleOffset() < 0 || ev.SampleOffset() >= int32(blockSize) {
				t.Errorf("block %d: midi offset %d outside block", blockSize, ev.SampleOffset())
			}
		}
	}
}

func TestEngineBypassIsDelayedPassthrough(t *testing.T) {
	e := newTestEngine(t)
	q := midi.NewEventQueue()

	const hostBlock = 256
	latency := e.LatencySamples() // 1102

	var output []float32
	var input []float32

	sample := 0
	for block := 0; block < 40; block++ {
		in := stereoBuffers(hostBlock)
		out := stereoBuffers(hostBlock)
		for i := 0; i < hostBlock; i++ {
			v := float32(math.Sin(2 * math.Pi * 100 * float64(sample) / 44100))
			in[0][i] = v
			in[1][i] = v
			input = append(input, v)
			sample++
		}
		q.Clear()
		e.Process(in, out, q, false, false, true)
		output = append(output, out[0]...)
	}

	// The output FIFO starts with one internal block of silence, so bypassed
	// audio comes out exactly the reported latency later.
	delay := latency

	for i := delay; i < len(output); i++ {
		if math.Abs(float64(output[i]-input[i-delay])) > 1e-6 {
			t.Fatalf("bypass output[%d] = %f, want input[%d] = %f",
				i, output[i], i-delay, input[i-delay])
		}
	}

	for i := 0; i < delay && i < len(output); i++ {
		if output[i] != 0 {
			t.Fatalf("warm-up output[%d] = %f, want 0", i, output[i])
		}
	}
}

func TestEngineBypassPassesMidiThrough(t *testing.T) {
	e := newTestEngine(t)
	q := midi.NewEventQueue()

	sawNoteOn := false
	for block := 0; block < 20; block++ {
		in := stereoBuffers(256)
		out := stereoBuffers(256)
		q.Clear()
		if block == 0 {
			q.Add(midi.NoteOnEvent{BaseEvent: midi.BaseEvent{EventChannel: 1, Offset: 10}, NoteNumber: 60, Velocity: 100})
		}
		e.Process(in, out, q, false, false, true)
		for _, ev := range q.AllEvents() {
			if on, ok := ev.(midi.NoteOnEvent); ok && on.NoteNumber == 60 {
				sawNoteOn = true
			}
		}
	}

	if !sawNoteOn {
		t.Error("bypassed engine swallowed the MIDI input")
	}
}

func TestEngineRendersHarmonyAndEmitsMidi(t *testing.T) {
	e := newTestEngine(t)
	e.SetDryWet(100)
	q := midi.NewEventQueue()

	var sawNoteOn bool
	var energy float64

	sample := 0
	for block := 0; block < 80; block++ {
		const n = 512
		in := stereoBuffers(n)
		out := stereoBuffers(n)
		for i := 0; i < n; i++ {
			v := float32(math.Sin(2*math.Pi*220*float64(sample)/44100)) * 0.5
			in[0][i] = v
			in[1][i] = v
			sample++
		}

		q.Clear()
		if block == 2 {
			q.Add(midi.NoteOnEvent{BaseEvent: midi.BaseEvent{EventChannel: 1}, NoteNumber: 69, Velocity: 110})
		}
		e.Process(in, out, q, false, false, false)

		for _, ev := range q.AllEvents() {
			if on, ok := ev.(midi.NoteOnEvent); ok && on.NoteNumber == 69 {
				sawNoteOn = true
			}
		}
		for _, v := range out[0] {
			energy += float64(v) * float64(v)
		}
	}

	if !sawNoteOn {
		t.Error("engine never emitted the harmonizer's NoteOn")
	}
	if energy < 1.0 {
		t.Errorf("wet output energy = %f, expected audible harmony", energy)
	}
}

func TestEngineFadeOutSilencesBlockEnd(t *testing.T) {
	e := newTestEngine(t)
	q := midi.NewEventQueue()

	// Warm the FIFO with signal first.
	for block := 0; block < 10; block++ {
		in := stereoBuffers(512)
		out := stereoBuffers(512)
		for i := range in[0] {
			in[0][i] = 0.5
			in[1][i] = 0.5
		}
		q.Clear()
		e.Process(in, out, q, false, false, true)
	}

	in := stereoBuffers(512)
	out := stereoBuffers(512)
	for i := range in[0] {
		in[0][i] = 0.5
		in[1][i] = 0.5
	}
	q.Clear()
	e.Process(in, out, q, false, true, true)

	last := out[0][len(out[0])-1]
	if math.Abs(float64(last)) > 1e-6 {
		t.Errorf("faded-out block ends at %f, want 0", last)
	}
}
