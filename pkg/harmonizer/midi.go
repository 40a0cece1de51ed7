package harmonizer

import (
	"github.com/msameen99/imogen/pkg/midi"
)

// processMidi dispatches one block's input events, then settles the
// automated note sources exactly once for the whole batch.
func (h *Harmonizer) processMidi(events []midi.Event) {
	h.aggregate.Clear()

	for _, e := range events {
		h.handleMidiEvent(e)
	}

	h.pitchCollectionChanged()
}

// ProcessMidiEvent handles a single out-of-band event (used by the latch
// controls and by tests) and settles the automated notes afterwards.
func (h *Harmonizer) ProcessMidiEvent(e midi.Event) {
	h.handleMidiEvent(e)
	h.pitchCollectionChanged()
}

func (h *Harmonizer) handleMidiEvent(e midi.Event) {
	h.lastMidiChannel = e.Channel()
	h.aggregate.SetChannel(e.Channel())
	h.aggregate.SetTimeStamp(e.SampleOffset() - 1)

	switch ev := e.(type) {
	case midi.NoteOnEvent:
		if ev.Velocity > 0 {
			h.noteOn(int(ev.NoteNumber), ev.FloatVelocity(), true)
		} else {
			h.noteOff(int(ev.NoteNumber), 0, true, true)
		}
	case midi.NoteOffEvent:
		h.noteOff(int(ev.NoteNumber), ev.FloatVelocity(), true, true)
	case midi.PitchBendEvent:
		h.handlePitchWheel(ev.WheelValue())
	case midi.PolyPressureEvent:
		h.handleAftertouch(int(ev.NoteNumber), ev.Pressure)
	case midi.ChannelPressureEvent:
		h.handleChannelPressure(ev.Pressure)
	case midi.ControlChangeEvent:
		h.handleController(ev.Controller, ev.Value)
	}
}

func (h *Harmonizer) handleController(controller, value uint8) {
	switch controller {
	case midi.CCSustain:
		h.handleSustainPedal(value)
	case midi.CCSostenuto:
		h.handleSostenutoPedal(value)
	case midi.CCSoft:
		h.handleSoftPedal(value)
	case midi.CCAllNotesOff, midi.CCAllSoundOff:
		h.AllNotesOff(false)
	case midi.CCModWheel, midi.CCBreath, midi.CCFoot, midi.CCPortamentoTime,
		midi.CCBalance, midi.CCLegato:
		// Not interpreted, but forwarded downstream.
		h.aggregate.AddControlChange(controller, value)
	}
}

// noteOn starts or retriggers a note. Automated note events never steal a
// voice; only keyboard events may, and only when stealing is enabled.
func (h *Harmonizer) noteOn(note int, velocity float32, isKeyboard bool) {
	if note < 0 || note > 127 {
		return
	}

	voice := h.voicePlayingNote(note)
	if voice == nil {
		canSteal := isKeyboard && h.shouldStealNotes
		voice = h.findFreeVoice(canSteal)
	}

	h.startVoice(voice, note, velocity, isKeyboard)
}

// startVoice drives the voice-start bookkeeping. A nil voice means the note
// could not be placed; any pedal or descant target pointing at it is
// forgotten so the automated sources retry cleanly.
func (h *Harmonizer) startVoice(voice *Voice, note int, velocity float32, isKeyboard bool) {
	if voice == nil {
		if h.pedal.isOn && note == h.pedal.lastPitch {
			h.pedal.lastPitch = -1
		}
		if h.descant.isOn && note == h.descant.lastPitch {
			h.descant.lastPitch = -1
		}
		return
	}

	prevNote := voice.CurrentlyPlayingNote()
	wasStolen := voice.IsVoiceActive()
	sameNoteRetriggered := wasStolen && prevNote == note

	if !sameNoteRetriggered {
		// A stolen voice needs a NoteOff for its old note, unless that note
		// already ended and the voice is only ringing out its release: its
		// NoteOff went out when it was stopped.
		if wasStolen && !voice.IsPlayingButReleased() {
			h.aggregate.AddNoteOff(uint8(prevNote), 1.0)
		}
		h.aggregate.AddNoteOn(uint8(note), velocity)
	}

	if note < h.lowestPannedNote {
		if wasStolen {
			h.panner.PanValTurnedOff(voice.CurrentMidiPan())
		}
		voice.setPan(64)
	} else if !wasStolen {
		voice.setPan(h.panner.NextPanVal())
	}

	role := RoleNormal
	if h.pedal.isOn && note == h.pedal.lastPitch {
		role = RolePedalPitch
	} else if h.descant.isOn && note == h.descant.lastPitch {
		role = RoleDescant
	}

	timestamp := voice.NoteOnTime()
	if !sameNoteRetriggered {
		h.noteOnCounter++
		timestamp = h.noteOnCounter
	}

	keyDown := voice.IsKeyDown()
	if isKeyboard {
		keyDown = true
	}

	voice.startNote(note, velocity, timestamp, keyDown, role, wasStolen)
}

// noteOff handles both keyboard releases and automated note-offs; the two
// differ in how they treat keys that are still held.
func (h *Harmonizer) noteOff(note int, velocity float32, allowTailOff, isKeyboard bool) {
	voice := h.voicePlayingNote(note)

	if voice == nil {
		if h.pedal.isOn && note == h.pedal.lastPitch {
			h.pedal.lastPitch = -1
		}
		if h.descant.isOn && note == h.descant.lastPitch {
			h.descant.lastPitch = -1
		}
		return
	}

	if isKeyboard {
		if h.latchOn {
			voice.setKeyDown(false)
			return
		}
		if !(h.sustainPedalDown || h.sostenutoPedalDown) {
			h.stopVoice(voice, velocity, allowTailOff)
		} else {
			voice.setKeyDown(false)
		}
		return
	}

	// Automated note-off: a voice whose keyboard key is still down survives,
	// it only sheds its automated role.
	if !voice.IsKeyDown() {
		h.stopVoice(voice, velocity, allowTailOff)
		return
	}

	if h.pedal.isOn && note == h.pedal.lastPitch {
		h.pedal.lastPitch = -1
		voice.role = RoleNormal
		voice.setKeyDown(true)
	}
	if h.descant.isOn && note == h.descant.lastPitch {
		h.descant.lastPitch = -1
		voice.role = RoleNormal
		voice.setKeyDown(true)
	}
}

// stopVoice emits the NoteOff, clears role bookkeeping and releases the
// voice's envelope.
func (h *Harmonizer) stopVoice(voice *Voice, velocity float32, allowTailOff bool) {
	if voice == nil {
		return
	}

	h.aggregate.AddNoteOff(uint8(voice.CurrentlyPlayingNote()), velocity)

	if voice.Role() == RolePedalPitch {
		h.pedal.lastPitch = -1
	}
	if voice.Role() == RoleDescant {
		h.descant.lastPitch = -1
	}

	voice.stopNote(velocity, allowTailOff)
}

// AllNotesOff stops every active voice and resets pan assignment.
func (h *Harmonizer) AllNotesOff(allowTailOff bool) {
	for _, v := range h.voices {
		if v.IsVoiceActive() {
			h.stopVoice(v, 1.0, allowTailOff)
		}
	}
	h.panner.Reset()
}

// turnOffAllKeyupNotes stops the active voices whose keys are up, optionally
// sparing the automated pedal and descant voices.
func (h *Harmonizer) turnOffAllKeyupNotes(allowTailOff, includePedalPitchAndDescant bool, velocity float32) {
	for _, v := range h.voices {
		if !v.IsVoiceActive() || v.IsKeyDown() {
			continue
		}
		if !includePedalPitchAndDescant && (v.Role() == RolePedalPitch || v.Role() == RoleDescant) {
			continue
		}
		h.stopVoice(v, velocity, allowTailOff)
	}
}

func (h *Harmonizer) handlePitchWheel(wheel int) {
	if h.lastPitchWheel == wheel {
		return
	}

	h.aggregate.AddPitchWheel(wheel)
	h.lastPitchWheel = wheel
	h.refreshOutputFrequencies()
}

func (h *Harmonizer) handleAftertouch(note int, value uint8) {
	h.aggregate.AddAftertouch(uint8(note), value)

	for _, v := range h.voices {
		if v.CurrentlyPlayingNote() == note {
			v.setAftertouch(value)
		}
	}
}

func (h *Harmonizer) handleChannelPressure(value uint8) {
	h.aggregate.AddChannelPressure(value)

	for _, v := range h.voices {
		v.setAftertouch(value)
	}
}

func (h *Harmonizer) handleSustainPedal(value uint8) {
	isDown := value >= 64
	if h.sustainPedalDown == isDown {
		return
	}

	h.sustainPedalDown = isDown
	h.aggregate.AddControlChange(midi.CCSustain, value)

	if isDown || h.latchOn || h.intervalLatchOn {
		return
	}

	h.turnOffAllKeyupNotes(false, false, 1.0)
}

func (h *Harmonizer) handleSostenutoPedal(value uint8) {
	isDown := value >= 64
	if h.sostenutoPedalDown == isDown {
		return
	}

	h.sostenutoPedalDown = isDown
	h.aggregate.AddControlChange(midi.CCSostenuto, value)

	if isDown || h.latchOn || h.intervalLatchOn {
		return
	}

	h.turnOffAllKeyupNotes(false, false, 1.0)
}

func (h *Harmonizer) handleSoftPedal(value uint8) {
	isDown := value >= 64
	if h.softPedalDown == isDown {
		return
	}

	h.softPedalDown = isDown
	h.aggregate.AddControlChange(midi.CCSoft, value)
}
