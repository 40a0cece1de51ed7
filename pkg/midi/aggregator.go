package midi

// Aggregator accumulates the harmonizer's MIDI output for one render block.
// Every added event is stamped with a strictly increasing offset so that the
// host sees the same ordering the harmonizer produced, even when several
// events are emitted in response to a single input event.
type Aggregator struct {
	events        []Event
	lastTimeStamp int32
	channel       uint8
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		events:        make([]Event, 0, 64),
		lastTimeStamp: -1,
		channel:       1,
	}
}

// Clear drops all collected events and rewinds the timestamp counter.
func (a *Aggregator) Clear() {
	a.events = a.events[:0]
	a.lastTimeStamp = -1
}

// SetChannel records the channel stamped onto subsequently added events.
func (a *Aggregator) SetChannel(channel uint8) {
	a.channel = channel
}

// SetTimeStamp anchors the rolling timestamp, normally to the sample position
// of the input event currently being handled, so that emitted events land at
// or after the event that caused them.
func (a *Aggregator) SetTimeStamp(ts int32) {
	if ts > a.lastTimeStamp {
		a.lastTimeStamp = ts
	}
}

func (a *Aggregator) nextStamp() int32 {
	a.lastTimeStamp++
	return a.lastTimeStamp
}

func (a *Aggregator) AddNoteOn(note uint8, velocity float32) {
	a.events = append(a.events, NoteOnEvent{
		BaseEvent:  BaseEvent{EventChannel: a.channel, Offset: a.nextStamp()},
		NoteNumber: note,
		Velocity:   velocityByte(velocity),
	})
}

func (a *Aggregator) AddNoteOff(note uint8, velocity float32) {
	a.events = append(a.events, NoteOffEvent{
		BaseEvent:  BaseEvent{EventChannel: a.channel, Offset: a.nextStamp()},
		NoteNumber: note,
		Velocity:   velocityByte(velocity),
	})
}

func (a *Aggregator) AddControlChange(controller, value uint8) {
	a.events = append(a.events, ControlChangeEvent{
		BaseEvent:  BaseEvent{EventChannel: a.channel, Offset: a.nextStamp()},
		Controller: controller,
		Value:      value,
	})
}

func (a *Aggregator) AddPitchWheel(wheel int) {
	a.events = append(a.events, PitchBendFromWheel(a.channel, wheel, a.nextStamp()))
}

func (a *Aggregator) AddAftertouch(note, value uint8) {
	a.events = append(a.events, PolyPressureEvent{
		BaseEvent:  BaseEvent{EventChannel: a.channel, Offset: a.nextStamp()},
		NoteNumber: note,
		Pressure:   value,
	})
}

func (a *Aggregator) AddChannelPressure(value uint8) {
	a.events = append(a.events, ChannelPressureEvent{
		BaseEvent: BaseEvent{EventChannel: a.channel, Offset: a.nextStamp()},
		Pressure:  value,
	})
}

// Events returns the collected events. The slice is valid until Clear.
func (a *Aggregator) Events() []Event {
	return a.events
}

func velocityByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 127
	}
	return uint8(v*127.0 + 0.5)
}
