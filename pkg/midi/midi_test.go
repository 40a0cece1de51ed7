package midi

import (
	"math"
	"testing"
)

func TestAggregatorTimestampsIncrease(t *testing.T) {
	a := NewAggregator()
	a.SetChannel(1)
	a.SetTimeStamp(9)

	a.AddNoteOff(60, 1.0)
	a.AddNoteOn(48, 0.5)
	a.AddPitchWheel(9000)
	a.AddControlChange(CCSustain, 127)

	events := a.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	prev := int32(9)
	for i, e := range events {
		if e.SampleOffset() <= prev {
			t.Errorf("event %d offset %d not after %d", i, e.SampleOffset(), prev)
		}
		prev = e.SampleOffset()
	}

	a.Clear()
	if len(a.Events()) != 0 {
		t.Error("clear left events behind")
	}
}

func TestAggregatorVelocityConversion(t *testing.T) {
	tests := []struct {
		velocity float32
		want     uint8
	}{
		{0.0, 0},
		{1.0, 127},
		{0.5, 64},
		{-1.0, 0},
		{2.0, 127},
	}

	for _, tt := range tests {
		a := NewAggregator()
		a.AddNoteOn(60, tt.velocity)
		on := a.Events()[0].(NoteOnEvent)
		if on.Velocity != tt.want {
			t.Errorf("velocity %f: got %d, want %d", tt.velocity, on.Velocity, tt.want)
		}
	}
}

func TestFIFORebasesOffsets(t *testing.T) {
	f := NewFIFO(8)

	f.Push([]Event{
		NoteOnEvent{BaseEvent: BaseEvent{Offset: 3}, NoteNumber: 60, Velocity: 100},
	}, 128)
	f.Push([]Event{
		NoteOnEvent{BaseEvent: BaseEvent{Offset: 10}, NoteNumber: 62, Velocity: 100},
	}, 128)

	if f.NumStoredSamples() != 256 {
		t.Fatalf("stored = %d, want 256", f.NumStoredSamples())
	}

	out := f.Pop(128, nil)
	if len(out) != 1 {
		t.Fatalf("first pop returned %d events, want 1", len(out))
	}
	if out[0].SampleOffset() != 3 {
		t.Errorf("first event offset = %d, want 3", out[0].SampleOffset())
	}

	out = f.Pop(128, out[:0])
	if len(out) != 1 {
		t.Fatalf("second pop returned %d events, want 1", len(out))
	}
	if out[0].SampleOffset() != 10 {
		t.Errorf("second event offset = %d, want 10 after rebase", out[0].SampleOffset())
	}
}

func TestEventQueueRangeQuery(t *testing.T) {
	q := NewEventQueue()
	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 400}, NoteNumber: 64})
	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 100}, NoteNumber: 60})
	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 250}, NoteNumber: 62})

	got := q.EventsInRange(100, 300, nil)
	if len(got) != 2 {
		t.Fatalf("range returned %d events, want 2", len(got))
	}
	if got[0].SampleOffset() != 0 || got[1].SampleOffset() != 150 {
		t.Errorf("offsets not rebased: %d, %d", got[0].SampleOffset(), got[1].SampleOffset())
	}
}

func TestNoteFrequencyRoundTrip(t *testing.T) {
	for _, note := range []float64{36, 57, 69, 88, 110} {
		hz := NoteToFrequency(note, 440.0)
		back := FrequencyToNote(hz, 440.0)
		if math.Abs(back-note) > 1e-9 {
			t.Errorf("note %f round-tripped to %f", note, back)
		}
	}

	if hz := NoteToFrequency(69, 440.0); math.Abs(hz-440.0) > 1e-9 {
		t.Errorf("A4 = %f, want 440", hz)
	}
	if hz := NoteToFrequency(69, 432.0); math.Abs(hz-432.0) > 1e-9 {
		t.Errorf("A4 at 432 tuning = %f, want 432", hz)
	}
}

func TestPitchBendWheelValue(t *testing.T) {
	e := PitchBendFromWheel(1, 16383, 0)
	if e.WheelValue() != 16383 {
		t.Errorf("wheel = %d, want 16383", e.WheelValue())
	}
	if e.Value != 8191 {
		t.Errorf("value = %d, want 8191", e.Value)
	}

	center := PitchBendFromWheel(1, 8192, 0)
	if center.Value != 0 {
		t.Errorf("center value = %d, want 0", center.Value)
	}
}
