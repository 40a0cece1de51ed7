// Package midi provides the typed MIDI event model shared by the harmonizer
// and the host-facing engine.
package midi

import (
	"fmt"
	"math"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
)

type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int32
	String() string
}

type BaseEvent struct {
	EventChannel uint8
	Offset       int32
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

func (e BaseEvent) SampleOffset() int32 {
	return e.Offset
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

// FloatVelocity returns the velocity normalized to [0, 1].
func (e NoteOnEvent) FloatVelocity() float32 {
	return float32(e.Velocity) / 127.0
}

type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

// FloatVelocity returns the release velocity normalized to [0, 1].
func (e NoteOffEvent) FloatVelocity() float32 {
	return float32(e.Velocity) / 127.0
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
		e.EventChannel, e.Controller, e.Value, e.Offset)
}

const (
	CCModWheel       uint8 = 1
	CCBreath         uint8 = 2
	CCFoot           uint8 = 4
	CCPortamentoTime uint8 = 5
	CCBalance        uint8 = 8
	CCSustain        uint8 = 64
	CCSostenuto      uint8 = 66
	CCSoft           uint8 = 67
	CCLegato         uint8 = 68
	CCAllSoundOff    uint8 = 120
	CCAllNotesOff    uint8 = 123
)

type PitchBendEvent struct {
	BaseEvent
	Value int16 // -8192 to 8191, 0 is center
}

func (e PitchBendEvent) Type() EventType {
	return EventTypePitchBend
}

func (e PitchBendEvent) String() string {
	return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}",
		e.EventChannel, e.Value, e.Offset)
}

// WheelValue returns the raw 14-bit wheel position (0..16383, 8192 center).
func (e PitchBendEvent) WheelValue() int {
	return int(e.Value) + 8192
}

// PitchBendFromWheel builds an event from a raw 14-bit wheel position.
func PitchBendFromWheel(channel uint8, wheel int, offset int32) PitchBendEvent {
	if wheel < 0 {
		wheel = 0
	} else if wheel > 16383 {
		wheel = 16383
	}
	return PitchBendEvent{
		BaseEvent: BaseEvent{EventChannel: channel, Offset: offset},
		Value:     int16(wheel - 8192),
	}
}

type PolyPressureEvent struct {
	BaseEvent
	NoteNumber uint8
	Pressure   uint8
}

func (e PolyPressureEvent) Type() EventType {
	return EventTypePolyPressure
}

func (e PolyPressureEvent) String() string {
	return fmt.Sprintf("PolyPressure{ch:%d, note:%d, pressure:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Pressure, e.Offset)
}

type ChannelPressureEvent struct {
	BaseEvent
	Pressure uint8
}

func (e ChannelPressureEvent) Type() EventType {
	return EventTypeChannelPressure
}

func (e ChannelPressureEvent) String() string {
	return fmt.Sprintf("ChannelPressure{ch:%d, pressure:%d, offset:%d}",
		e.EventChannel, e.Pressure, e.Offset)
}

type ProgramChangeEvent struct {
	BaseEvent
	Program uint8
}

func (e ProgramChangeEvent) Type() EventType {
	return EventTypeProgramChange
}

func (e ProgramChangeEvent) String() string {
	return fmt.Sprintf("ProgramChange{ch:%d, prog:%d, offset:%d}",
		e.EventChannel, e.Program, e.Offset)
}

// WithOffset returns a copy of the event re-stamped at the given sample offset.
func WithOffset(event Event, offset int32) Event {
	switch e := event.(type) {
	case NoteOnEvent:
		e.Offset = offset
		return e
	case NoteOffEvent:
		e.Offset = offset
		return e
	case ControlChangeEvent:
		e.Offset = offset
		return e
	case PitchBendEvent:
		e.Offset = offset
		return e
	case PolyPressureEvent:
		e.Offset = offset
		return e
	case ChannelPressureEvent:
		e.Offset = offset
		return e
	case ProgramChangeEvent:
		e.Offset = offset
		return e
	}
	return event
}

// NoteToFrequency converts a MIDI note number to Hz for the given A4 tuning.
func NoteToFrequency(note float64, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((note-69.0)/12.0)
}

// FrequencyToNote converts Hz to the fractional MIDI note number for the
// given A4 tuning. Callers that need an integer pitch round the result.
func FrequencyToNote(freq, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	if freq <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(freq/tuningA4)
}

func NoteNumberToName(note uint8) string {
	noteNames := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
