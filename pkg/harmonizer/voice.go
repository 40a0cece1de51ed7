// Package harmonizer implements the polyphonic pitch-shifting instrument:
// voice pool, MIDI note lifecycle including the automated note sources, and
// the per-voice PSOLA synthesis.
package harmonizer

import (
	"github.com/msameen99/imogen/pkg/dsp/envelope"
	"github.com/msameen99/imogen/pkg/dsp/pan"
	"github.com/msameen99/imogen/pkg/dsp/pitch"
)

// VoiceRole tags a voice with the automated note source that owns it. At
// most one active voice carries each non-normal role.
type VoiceRole uint8

const (
	RoleNormal VoiceRole = iota
	RolePedalPitch
	RoleDescant
)

// Voice is one monophonic pitch-shifting synthesis voice. Voices are owned
// exclusively by the Harmonizer and live as long as it does; the pool only
// grows or shrinks between blocks.
type Voice struct {
	h *Harmonizer

	active      bool
	playingNote int
	keyDown     bool
	noteOnTime  uint64
	role        VoiceRole

	lastVelocity float32
	aftertouch   uint8

	outputFreqHz float64

	env     *envelope.ADSR
	panner  *pan.MidiPanner
	shifter *pitch.Shifter

	monoBuf []float32
}

func newVoice(h *Harmonizer) *Voice {
	return &Voice{
		h:       h,
		env:     envelope.New(h.sampleRate),
		panner:  pan.NewMidiPanner(),
		shifter: pitch.NewShifter(),
	}
}

func (v *Voice) prepare(sampleRate float64, blockSize, maxPeriod int) error {
	v.env = envelope.New(sampleRate)
	v.env.SetADSR(v.h.attack, v.h.decay, v.h.sustain, v.h.release)
	if len(v.monoBuf) != blockSize {
		v.monoBuf = make([]float32, blockSize)
	}
	return v.shifter.Prepare(blockSize, maxPeriod)
}

// IsVoiceActive reports whether the voice is producing sound, including the
// release tail.
func (v *Voice) IsVoiceActive() bool { return v.active }

// CurrentlyPlayingNote returns the MIDI note the voice shifts toward; only
// meaningful while the voice is active.
func (v *Voice) CurrentlyPlayingNote() int { return v.playingNote }

// IsKeyDown reports whether the originating keyboard key is still depressed.
func (v *Voice) IsKeyDown() bool { return v.keyDown }

// IsPlayingButReleased reports whether the envelope is in its release phase
// while the voice is still audible: the note has logically ended but the
// tail is ringing.
func (v *Voice) IsPlayingButReleased() bool {
	return v.active && v.env.GetStage() == envelope.StageRelease
}

func (v *Voice) setKeyDown(down bool) {
	v.keyDown = down
}

// Role returns the automation role currently tagged onto the voice.
func (v *Voice) Role() VoiceRole { return v.role }

// NoteOnTime returns the monotonic start-of-note counter value, the
// tiebreaker for voice stealing.
func (v *Voice) NoteOnTime() uint64 { return v.noteOnTime }

// LastVelocity returns the velocity of the most recent start of this voice.
func (v *Voice) LastVelocity() float32 { return v.lastVelocity }

// CurrentMidiPan returns the voice's pan position.
func (v *Voice) CurrentMidiPan() int { return v.panner.Pan() }

// IsReleasing reports whether the envelope is in its release phase.
func (v *Voice) IsReleasing() bool {
	return v.env.GetStage() == envelope.StageRelease
}

func (v *Voice) setPan(p int) {
	if v.active {
		v.panner.SetMidiPan(p)
	} else {
		v.panner.Reset(p)
	}
}

func (v *Voice) setAftertouch(value uint8) {
	v.aftertouch = value
}

// setCurrentOutputFreq updates the synthesis target frequency; called on
// note starts and whenever the pitch wheel moves.
func (v *Voice) setCurrentOutputFreq(hz float64) {
	if hz > 0 {
		v.outputFreqHz = hz
	}
}

// startNote begins or retriggers the voice. Stolen voices restart the
// envelope with the quick attack to mask the transition.
func (v *Voice) startNote(note int, velocity float32, noteOnTime uint64, keyDown bool, role VoiceRole, wasStolen bool) {
	v.playingNote = note
	v.lastVelocity = velocity
	v.noteOnTime = noteOnTime
	v.keyDown = keyDown
	v.role = role
	v.active = true

	v.setCurrentOutputFreq(v.h.outputFrequency(note))

	if wasStolen {
		v.env.TriggerQuick(v.h.quickAttackMs / 1000.0)
	} else {
		v.env.Trigger()
		v.shifter.Reset()
	}
}

// stopNote releases the voice. With allowTailOff the configured release runs
// out; otherwise the quick release silences it within a few milliseconds.
func (v *Voice) stopNote(velocity float32, allowTailOff bool) {
	_ = velocity

	if allowTailOff {
		v.env.Release()
	} else {
		v.env.ReleaseQuick(v.h.quickReleaseMs / 1000.0)
	}
	v.keyDown = false
	v.role = RoleNormal
}

// clearNote is the envelope-finished cleanup: the voice leaves the pool's
// active set and returns its pan slot.
func (v *Voice) clearNote() {
	wasActive := v.active
	v.active = false
	v.role = RoleNormal
	v.env.Reset()

	if wasActive {
		v.h.panner.PanValTurnedOff(v.panner.Pan())
	}
}

// velocityGain maps the note velocity through the harmonizer's sensitivity
// setting: at zero sensitivity every note sounds at full level.
func (v *Voice) velocityGain() float32 {
	sens := float32(v.h.velocitySensitivity) / 100.0
	return 1.0 - sens*(1.0-v.lastVelocity)
}

// renderNextBlock synthesizes the voice's contribution and mixes it
// additively into the stereo output.
func (v *Voice) renderNextBlock(input []float32, peaks []int, inPeriod int, outLeft, outRight []float32) {
	if !v.active {
		return
	}

	n := len(input)
	if len(outLeft) < n {
		n = len(outLeft)
	}
	if len(outRight) < n {
		n = len(outRight)
	}
	if n == 0 {
		return
	}

	outPeriod := float64(inPeriod)
	if v.outputFreqHz > 0 {
		outPeriod = v.h.sampleRate / v.outputFreqHz
	}

	v.shifter.Process(input, peaks, inPeriod, outPeriod, v.monoBuf[:n])

	gain := v.velocityGain()
	if v.IsPlayingButReleased() {
		gain *= v.h.playingButReleasedGain
	}
	if v.h.softPedalDown {
		gain *= v.h.softPedalGain
	}
	if v.h.aftertouchGainOn && v.aftertouch > 0 {
		gain *= 1.0 + float32(v.aftertouch)/127.0*0.5
	}

	lStart, lEnd := v.panner.PrevGain(0), v.panner.GainMult(0)
	rStart, rEnd := v.panner.PrevGain(1), v.panner.GainMult(1)
	var lDelta, rDelta float32
	if n > 1 {
		lDelta = (lEnd - lStart) / float32(n-1)
		rDelta = (rEnd - rStart) / float32(n-1)
	}
	lGain, rGain := lStart, rStart

	for i := 0; i < n; i++ {
		sample := v.monoBuf[i] * v.env.Next() * gain
		outLeft[i] += sample * lGain
		outRight[i] += sample * rGain
		lGain += lDelta
		rGain += rDelta
	}
	v.panner.Advance()

	if !v.env.IsActive() {
		v.clearNote()
	}
}
