package harmonizer

import (
	"math"

	"github.com/msameen99/imogen/pkg/midi"
)

// pitchCollectionChanged runs once after every batch of input events and
// after every chord or latch operation: it settles pedal pitch, descant and
// the interval-latch snapshot, in that order.
func (h *Harmonizer) pitchCollectionChanged() {
	if h.pedal.isOn {
		h.applyPedalPitch()
	}
	if h.descant.isOn {
		h.applyDescant()
	}
	if h.intervalLatchOn {
		h.updateIntervalsLatchedTo()
	}
}

// SetMidiLatch engages or releases the latch. While latched, keyboard
// note-offs only mark the key up; the notes keep sounding until release.
func (h *Harmonizer) SetMidiLatch(shouldBeOn, allowTailOff bool) {
	if h.latchOn == shouldBeOn {
		return
	}

	h.latchOn = shouldBeOn

	if shouldBeOn {
		return
	}

	if !h.intervalLatchOn || len(h.intervalsLatched) == 0 {
		velocity := float32(1.0)
		if allowTailOff {
			velocity = 0.0
		}
		h.turnOffAllKeyupNotes(allowTailOff, false, velocity)
	} else {
		// Spare the voices the interval latch is still holding.
		currentMidiPitch := h.roundedInputNote()

		velocity := float32(1.0)
		if allowTailOff {
			velocity = 0.0
		}

		for _, v := range h.voices {
			if !v.IsVoiceActive() || v.IsKeyDown() {
				continue
			}
			if v.Role() == RolePedalPitch || v.Role() == RoleDescant {
				continue
			}
			held := false
			for _, interval := range h.intervalsLatched {
				if v.CurrentlyPlayingNote() == currentMidiPitch+interval {
					held = true
					break
				}
			}
			if !held {
				h.stopVoice(v, velocity, allowTailOff)
			}
		}
	}

	h.pitchCollectionChanged()
}

// IsLatchOn reports the latch state.
func (h *Harmonizer) IsLatchOn() bool { return h.latchOn }

// SetIntervalLatch engages or releases the interval latch. Engaging captures
// the semitone offsets of the current chord from the input pitch; while
// engaged, the harmony follows the input pitch in parallel.
func (h *Harmonizer) SetIntervalLatch(shouldBeOn, allowTailOff bool) {
	if h.intervalLatchOn == shouldBeOn {
		return
	}

	h.intervalLatchOn = shouldBeOn

	if shouldBeOn {
		h.updateIntervalsLatchedTo()
	} else if !h.latchOn {
		velocity := float32(1.0)
		if allowTailOff {
			velocity = 0.0
		}
		h.turnOffAllKeyupNotes(allowTailOff, false, velocity)
		h.pitchCollectionChanged()
	}
}

// IsIntervalLatchOn reports the interval-latch state.
func (h *Harmonizer) IsIntervalLatchOn() bool { return h.intervalLatchOn }

// IntervalsLatched exposes the captured offsets (for tests and remotes).
func (h *Harmonizer) IntervalsLatched() []int { return h.intervalsLatched }

// updateIntervalsLatchedTo snapshots the distance in semitones of each
// currently sounding note from the current input pitch.
func (h *Harmonizer) updateIntervalsLatchedTo() {
	h.intervalsLatched = h.intervalsLatched[:0]

	h.currentNotes = h.reportActiveNotes(h.currentNotes, false, true)
	if len(h.currentNotes) == 0 {
		return
	}

	currentMidiPitch := h.roundedInputNote()
	for _, note := range h.currentNotes {
		h.intervalsLatched = append(h.intervalsLatched, note-currentMidiPitch)
	}
}

func (h *Harmonizer) roundedInputNote() int {
	if h.currentInputFreq <= 0 {
		if h.lastInputNote >= 0 {
			return h.lastInputNote
		}
		return 60
	}
	return int(math.Round(midi.FrequencyToNote(float64(h.currentInputFreq), float64(h.concertPitchHz))))
}

// playIntervalSet plays the chord described by interval offsets from the
// current input pitch.
func (h *Harmonizer) playIntervalSet(desiredIntervals []int, velocity float32, allowTailOffOfOld, isIntervalLatch bool) {
	if len(desiredIntervals) == 0 {
		h.AllNotesOff(allowTailOffOfOld)
		return
	}

	currentInputPitch := h.roundedInputNote()

	h.desiredNotes = h.desiredNotes[:0]
	for _, interval := range desiredIntervals {
		h.desiredNotes = append(h.desiredNotes, currentInputPitch+interval)
	}

	h.PlayChord(h.desiredNotes, velocity, allowTailOffOfOld)

	if !isIntervalLatch {
		h.pitchCollectionChanged()
	}
}

// PlayChord ensures that exactly the desired pitches sound: stale notes are
// turned off first, missing ones turned on, then the automated sources
// settle once.
func (h *Harmonizer) PlayChord(desiredPitches []int, velocity float32, allowTailOffOfOld bool) {
	if len(desiredPitches) == 0 {
		h.AllNotesOff(allowTailOffOfOld)
		return
	}

	h.currentNotes = h.reportActiveNotes(h.currentNotes, false, true)

	if len(h.currentNotes) == 0 {
		h.turnOnList(desiredPitches, velocity, true)
		return
	}

	h.turnOffNotes = h.turnOffNotes[:0]
	for _, note := range h.currentNotes {
		if !containsNote(desiredPitches, note) {
			h.turnOffNotes = append(h.turnOffNotes, note)
		}
	}

	offVelocity := float32(1.0)
	if allowTailOffOfOld {
		offVelocity = 0.0
	}
	h.turnOffList(h.turnOffNotes, offVelocity, allowTailOffOfOld, true)

	h.turnOnNotes = h.turnOnNotes[:0]
	for _, note := range desiredPitches {
		if !containsNote(h.currentNotes, note) {
			h.turnOnNotes = append(h.turnOnNotes, note)
		}
	}

	h.turnOnList(h.turnOnNotes, velocity, true)
}

func (h *Harmonizer) turnOnList(toTurnOn []int, velocity float32, partOfChord bool) {
	if len(toTurnOn) == 0 {
		return
	}

	for _, note := range toTurnOn {
		h.noteOn(note, velocity, false)
	}

	if !partOfChord {
		h.pitchCollectionChanged()
	}
}

func (h *Harmonizer) turnOffList(toTurnOff []int, velocity float32, allowTailOff, partOfChord bool) {
	if len(toTurnOff) == 0 {
		return
	}

	for _, note := range toTurnOff {
		h.noteOff(note, velocity, allowTailOff, false)
	}

	if !partOfChord {
		h.pitchCollectionChanged()
	}
}

// applyPedalPitch doubles the lowest held keyboard note a fixed interval
// below it, as long as that note sits at or below the pedal threshold.
func (h *Harmonizer) applyPedalPitch() {
	currentLowest := 128
	var lowestVoice *Voice

	for _, v := range h.voices {
		if v.IsVoiceActive() && v.IsKeyDown() {
			if note := v.CurrentlyPlayingNote(); note < currentLowest {
				currentLowest = note
				lowestVoice = v
			}
		}
	}

	if currentLowest > h.pedal.thresh {
		if h.pedal.lastPitch > -1 {
			h.noteOff(h.pedal.lastPitch, 1.0, false, false)
		}
		return
	}

	newPedalPitch := currentLowest - h.pedal.interval

	if newPedalPitch == h.pedal.lastPitch {
		return
	}

	if newPedalPitch < 0 || h.isPitchActive(newPedalPitch, false, true) {
		if h.pedal.lastPitch > -1 {
			h.noteOff(h.pedal.lastPitch, 1.0, false, false)
		}
		return
	}

	prevPedalVoice := h.voiceWithRole(RolePedalPitch)
	if prevPedalVoice != nil && prevPedalVoice.IsKeyDown() {
		// The previous pedal voice's key is held; it can't be repurposed.
		prevPedalVoice = nil
	}

	if prevPedalVoice != nil {
		// Reuse the voice directly, keeping the pedal line on one voice and
		// its pan slot untouched.
		velocity := prevPedalVoice.LastVelocity()
		if lowestVoice != nil {
			velocity = lowestVoice.LastVelocity()
		}
		h.pedal.lastPitch = newPedalPitch
		h.startVoice(prevPedalVoice, newPedalPitch, velocity, false)
		return
	}

	if h.pedal.lastPitch > -1 {
		h.noteOff(h.pedal.lastPitch, 1.0, false, false)
	}

	velocity := float32(1.0)
	if lowestVoice != nil {
		velocity = lowestVoice.LastVelocity()
	}
	h.pedal.lastPitch = newPedalPitch
	h.noteOn(newPedalPitch, velocity, false)
}

// applyDescant mirrors applyPedalPitch above the highest held keyboard note.
func (h *Harmonizer) applyDescant() {
	currentHighest := -1
	var highestVoice *Voice

	for _, v := range h.voices {
		if v.IsVoiceActive() && v.IsKeyDown() {
			if note := v.CurrentlyPlayingNote(); note > currentHighest {
				currentHighest = note
				highestVoice = v
			}
		}
	}

	if currentHighest < h.descant.thresh {
		if h.descant.lastPitch > -1 {
			h.noteOff(h.descant.lastPitch, 1.0, false, false)
		}
		return
	}

	newDescantPitch := currentHighest + h.descant.interval

	if newDescantPitch == h.descant.lastPitch {
		return
	}

	if newDescantPitch > 127 || h.isPitchActive(newDescantPitch, false, true) {
		if h.descant.lastPitch > -1 {
			h.noteOff(h.descant.lastPitch, 1.0, false, false)
		}
		return
	}

	prevDescantVoice := h.voiceWithRole(RoleDescant)
	if prevDescantVoice != nil && prevDescantVoice.IsKeyDown() {
		prevDescantVoice = nil
	}

	if prevDescantVoice != nil {
		velocity := prevDescantVoice.LastVelocity()
		if highestVoice != nil {
			velocity = highestVoice.LastVelocity()
		}
		h.descant.lastPitch = newDescantPitch
		h.startVoice(prevDescantVoice, newDescantPitch, velocity, false)
		return
	}

	if h.descant.lastPitch > -1 {
		h.noteOff(h.descant.lastPitch, 1.0, false, false)
	}

	velocity := float32(1.0)
	if highestVoice != nil {
		velocity = highestVoice.LastVelocity()
	}
	h.descant.lastPitch = newDescantPitch
	h.noteOn(newDescantPitch, velocity, false)
}

func containsNote(notes []int, note int) bool {
	for _, n := range notes {
		if n == note {
			return true
		}
	}
	return false
}
