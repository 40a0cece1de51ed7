package harmonizer

import (
	"fmt"
	"math"

	"github.com/msameen99/imogen/pkg/dsp/pitch"
	"github.com/msameen99/imogen/pkg/midi"
)

const (
	defaultQuickAttackMs  = 5.0
	defaultQuickReleaseMs = 5.0

	defaultPlayingButReleasedGain = 0.4
	defaultSoftPedalGain          = 0.65
)

// autoNoteState tracks one automated note source (pedal pitch or descant).
type autoNoteState struct {
	isOn      bool
	thresh    int
	interval  int
	lastPitch int // -1 when no automated note is sounding
}

// IntonationInfo reports the nearest MIDI note to the detected input pitch
// and how many cents sharp the singer is of it.
type IntonationInfo struct {
	Pitch      int
	CentsSharp int
}

// Harmonizer owns the voice pool and implements the full MIDI note
// lifecycle, including the automated note sources and both latch modes.
// All of its methods run on the audio goroutine; configuration setters are
// called from the block-start parameter snapshot.
type Harmonizer struct {
	sampleRate float64
	blockSize  int

	voices []*Voice

	detector     *pitch.Detector
	peakAnalyzer *pitch.PeakAnalyzer
	panner       *PanningManager
	aggregate    *midi.Aggregator

	latchOn          bool
	intervalLatchOn  bool
	intervalsLatched []int

	sustainPedalDown   bool
	sostenutoPedalDown bool
	softPedalDown      bool

	currentInputFreq float32 // -1 when unpitched
	lastInputNote    int     // rounded note of currentInputFreq, -1 unpitched

	lastPitchWheel  int // raw 14-bit, 8192 center
	lastMidiChannel uint8
	noteOnCounter   uint64

	pitchBendUp   int
	pitchBendDown int

	velocitySensitivity int
	concertPitchHz      int
	lowestPannedNote    int
	shouldStealNotes    bool
	aftertouchGainOn    bool

	adsrOn  bool
	attack  float64
	decay   float64
	sustain float64
	release float64

	quickAttackMs  float64
	quickReleaseMs float64

	playingButReleasedGain float32
	softPedalGain          float32

	pedal   autoNoteState
	descant autoNoteState

	intonation IntonationInfo

	// per-block scratch, reused to keep the render path allocation-free
	currentNotes []int
	desiredNotes []int
	turnOffNotes []int
	turnOnNotes  []int
}

// New creates a harmonizer for the given pitch range. The pool starts empty;
// call Prepare and SetNumVoices before rendering.
func New(minHz, maxHz int, sampleRate float64) (*Harmonizer, error) {
	det, err := pitch.NewDetector(minHz, maxHz, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("harmonizer: %w", err)
	}

	h := &Harmonizer{
		sampleRate:   sampleRate,
		detector:     det,
		peakAnalyzer: pitch.NewPeakAnalyzer(),
		panner:       NewPanningManager(),
		aggregate:    midi.NewAggregator(),

		currentInputFreq: -1,
		lastInputNote:    -1,
		lastPitchWheel:   8192,
		lastMidiChannel:  1,

		pitchBendUp:   2,
		pitchBendDown: 2,

		velocitySensitivity: 100,
		concertPitchHz:      440,
		adsrOn:              true,
		attack:              0.035,
		decay:               0.06,
		sustain:             0.8,
		release:             0.1,

		quickAttackMs:  defaultQuickAttackMs,
		quickReleaseMs: defaultQuickReleaseMs,

		playingButReleasedGain: defaultPlayingButReleasedGain,
		softPedalGain:          defaultSoftPedalGain,

		pedal:   autoNoteState{thresh: 0, interval: 12, lastPitch: -1},
		descant: autoNoteState{thresh: 127, interval: 12, lastPitch: -1},
	}
	return h, nil
}

// Prepare sizes every voice for the fixed internal block. Must be called
// whenever the samplerate, the block size or the pitch range changes, and
// only while the host has suspended processing.
func (h *Harmonizer) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate > 0 {
		h.sampleRate = sampleRate
		h.detector.SetSampleRate(sampleRate)
	}
	if blockSize < 1 {
		return fmt.Errorf("harmonizer: invalid block size %d", blockSize)
	}
	h.blockSize = blockSize

	for _, v := range h.voices {
		if err := v.prepare(h.sampleRate, blockSize, h.detector.MaxPeriod()); err != nil {
			return err
		}
	}
	return nil
}

// Latency returns the fixed block the synthesis needs: two maximum periods,
// guaranteeing at least one full analysis window per block.
func (h *Harmonizer) Latency() int {
	return 2 * h.detector.MaxPeriod()
}

// NumVoices returns the current pool size.
func (h *Harmonizer) NumVoices() int { return len(h.voices) }

// SetNumVoices grows or shrinks the pool. Removed voices are silenced first.
// Only call while processing is suspended.
func (h *Harmonizer) SetNumVoices(n int) error {
	if n < 1 {
		return fmt.Errorf("harmonizer: voice count must be positive, got %d", n)
	}

	for len(h.voices) > n {
		last := h.voices[len(h.voices)-1]
		if last.IsVoiceActive() {
			h.stopVoice(last, 1.0, false)
		}
		h.voices = h.voices[:len(h.voices)-1]
	}

	for len(h.voices) < n {
		v := newVoice(h)
		if h.blockSize > 0 {
			if err := v.prepare(h.sampleRate, h.blockSize, h.detector.MaxPeriod()); err != nil {
				return err
			}
		}
		h.voices = append(h.voices, v)
	}

	h.panner.Prepare(n)
	return nil
}

// SetPitchDetectionRange reconfigures the detector; the engine re-sizes its
// buffers afterwards because the internal block length follows the range.
func (h *Harmonizer) SetPitchDetectionRange(minHz, maxHz int) {
	h.detector.SetHzRange(minHz, maxHz)
}

// PitchDetectionRange returns the configured range.
func (h *Harmonizer) PitchDetectionRange() (minHz, maxHz int) {
	return h.detector.HzRange()
}

// LatestIntonation returns the nearest note and cents offset of the last
// pitched input frame.
func (h *Harmonizer) LatestIntonation() IntonationInfo { return h.intonation }

// CurrentInputFreq returns the last pitch estimate in Hz, or -1.
func (h *Harmonizer) CurrentInputFreq() float32 { return h.currentInputFreq }

// Reset silences everything and forgets the input pitch history.
func (h *Harmonizer) Reset() {
	h.AllNotesOff(false)
	h.detector.Reset()
	h.currentInputFreq = -1
	h.lastInputNote = -1
	for _, v := range h.voices {
		v.shifter.Reset()
	}
}

// Configuration setters, sampled once per host block by the engine.

func (h *Harmonizer) SetADSR(attack, decay, sustain, release float64, on bool) {
	if attack == h.attack && decay == h.decay && sustain == h.sustain &&
		release == h.release && on == h.adsrOn {
		return
	}
	h.attack, h.decay, h.sustain, h.release = attack, decay, sustain, release
	h.adsrOn = on
	for _, v := range h.voices {
		if on {
			v.env.SetADSR(attack, decay, sustain, release)
		} else {
			// Flat gain with just enough slew to stay click-free.
			v.env.SetADSR(0.002, 0.002, 1.0, 0.002)
		}
	}
}

func (h *Harmonizer) SetQuickReleaseMs(ms float64) {
	if ms > 0 {
		h.quickReleaseMs = ms
	}
}

func (h *Harmonizer) SetQuickAttackMs(ms float64) {
	if ms > 0 {
		h.quickAttackMs = ms
	}
}

func (h *Harmonizer) SetNoteStealingEnabled(enabled bool) { h.shouldStealNotes = enabled }

func (h *Harmonizer) SetVelocitySensitivity(sensitivity int) {
	h.velocitySensitivity = clampInt(sensitivity, 0, 100)
}

func (h *Harmonizer) SetPitchBendRange(up, down int) {
	h.pitchBendUp = clampInt(up, 0, 12)
	h.pitchBendDown = clampInt(down, 0, 12)
	h.refreshOutputFrequencies()
}

func (h *Harmonizer) SetConcertPitchHz(hz int) {
	h.concertPitchHz = clampInt(hz, 392, 494)
	h.refreshOutputFrequencies()
}

func (h *Harmonizer) SetLowestPannedNote(note int) {
	h.lowestPannedNote = clampInt(note, 0, 127)
}

func (h *Harmonizer) SetStereoWidth(width int) {
	h.panner.SetStereoWidth(width)
}

func (h *Harmonizer) SetAftertouchGainOn(on bool) { h.aftertouchGainOn = on }

func (h *Harmonizer) SetPlayingButReleasedGain(mult float32) {
	h.playingButReleasedGain = mult
}

func (h *Harmonizer) SetSoftPedalGain(mult float32) {
	h.softPedalGain = mult
}

func (h *Harmonizer) SetPedalPitch(on bool, thresh, interval int) {
	wasOn := h.pedal.isOn
	h.pedal.isOn = on
	h.pedal.thresh = clampInt(thresh, 0, 127)
	h.pedal.interval = clampInt(interval, 1, 12)
	if wasOn && !on && h.pedal.lastPitch > -1 {
		h.noteOff(h.pedal.lastPitch, 1.0, false, false)
		h.pedal.lastPitch = -1
	}
}

func (h *Harmonizer) SetDescant(on bool, thresh, interval int) {
	wasOn := h.descant.isOn
	h.descant.isOn = on
	h.descant.thresh = clampInt(thresh, 0, 127)
	h.descant.interval = clampInt(interval, 1, 12)
	if wasOn && !on && h.descant.lastPitch > -1 {
		h.noteOff(h.descant.lastPitch, 1.0, false, false)
		h.descant.lastPitch = -1
	}
}

// outputFrequency folds concert pitch and the current pitch-wheel bend into
// the target frequency for a note.
func (h *Harmonizer) outputFrequency(note int) float64 {
	bend := 0.0
	if h.lastPitchWheel >= 8192 {
		bend = float64(h.lastPitchWheel-8192) / 8192.0 * float64(h.pitchBendUp)
	} else {
		bend = float64(h.lastPitchWheel-8192) / 8192.0 * float64(h.pitchBendDown)
	}
	return midi.NoteToFrequency(float64(note)+bend, float64(h.concertPitchHz))
}

func (h *Harmonizer) refreshOutputFrequencies() {
	for _, v := range h.voices {
		if v.IsVoiceActive() {
			v.setCurrentOutputFreq(h.outputFrequency(v.CurrentlyPlayingNote()))
		}
	}
}

// findFreeVoice picks a voice for a new note. Priority: an inactive voice,
// then a releasing key-up voice, then — only when stealing — the oldest
// key-up voice, or the oldest voice of all when every key is down. Ties break
// toward the smallest noteOnTime.
func (h *Harmonizer) findFreeVoice(canSteal bool) *Voice {
	var best *Voice

	for _, v := range h.voices {
		if !v.IsVoiceActive() {
			if best == nil || v.NoteOnTime() < best.NoteOnTime() {
				best = v
			}
		}
	}
	if best != nil {
		return best
	}

	for _, v := range h.voices {
		if v.IsReleasing() && !v.IsKeyDown() {
			if best == nil || v.NoteOnTime() < best.NoteOnTime() {
				best = v
			}
		}
	}
	if best != nil {
		return best
	}

	if !canSteal {
		return nil
	}

	for _, v := range h.voices {
		if !v.IsKeyDown() {
			if best == nil || v.NoteOnTime() < best.NoteOnTime() {
				best = v
			}
		}
	}
	if best != nil {
		return best
	}

	// Every key is down: steal the oldest note.
	for _, v := range h.voices {
		if best == nil || v.NoteOnTime() < best.NoteOnTime() {
			best = v
		}
	}
	return best
}

func (h *Harmonizer) voicePlayingNote(note int) *Voice {
	for _, v := range h.voices {
		if v.IsVoiceActive() && v.CurrentlyPlayingNote() == note {
			return v
		}
	}
	return nil
}

func (h *Harmonizer) voiceWithRole(role VoiceRole) *Voice {
	for _, v := range h.voices {
		if v.IsVoiceActive() && v.Role() == role {
			return v
		}
	}
	return nil
}

// isPitchActive reports whether any voice plays the pitch, optionally
// counting ringing-but-released voices and key-up voices.
func (h *Harmonizer) isPitchActive(note int, countRingingButReleased, countKeyUpNotes bool) bool {
	for _, v := range h.voices {
		if !v.IsVoiceActive() || v.CurrentlyPlayingNote() != note {
			continue
		}
		if !countRingingButReleased && v.IsPlayingButReleased() {
			continue
		}
		if !countKeyUpNotes && !v.IsKeyDown() {
			continue
		}
		return true
	}
	return false
}

// reportActiveNotes collects the sorted pitches of the active voices.
func (h *Harmonizer) reportActiveNotes(dst []int, includePlayingButReleased, includeKeyUpNotes bool) []int {
	dst = dst[:0]
	for _, v := range h.voices {
		if !v.IsVoiceActive() {
			continue
		}
		if !includePlayingButReleased && v.IsPlayingButReleased() {
			continue
		}
		if !includeKeyUpNotes && !v.IsKeyDown() {
			continue
		}
		dst = append(dst, v.CurrentlyPlayingNote())
	}
	sortInts(dst)
	return dst
}

// RenderVoices is the per-block entry point: it dispatches the block's MIDI
// input, analyzes the input pitch, and mixes every active voice into the
// stereo output. The returned events are the harmonizer's MIDI output for
// the block, valid until the next call.
func (h *Harmonizer) RenderVoices(input []float32, outLeft, outRight []float32, midiIn []midi.Event) []midi.Event {
	h.processMidi(midiIn)

	h.analyzeInput(input)

	inPeriod := h.currentPeriod()
	peaks := h.peakAnalyzer.AnalyzeGrains(input, inPeriod)

	for i := range outLeft {
		outLeft[i] = 0
	}
	for i := range outRight {
		outRight[i] = 0
	}

	for _, v := range h.voices {
		v.renderNextBlock(input, peaks, inPeriod, outLeft, outRight)
	}

	return h.aggregate.Events()
}

func (h *Harmonizer) analyzeInput(input []float32) {
	freq := h.detector.DetectPitch(input)
	h.currentInputFreq = freq

	if freq <= 0 {
		h.lastInputNote = -1
		return
	}

	exact := midi.FrequencyToNote(float64(freq), float64(h.concertPitchHz))
	note := int(math.Round(exact))
	h.intonation = IntonationInfo{
		Pitch:      note,
		CentsSharp: int(math.Round((exact - float64(note)) * 100.0)),
	}

	if note != h.lastInputNote {
		h.lastInputNote = note
		if h.intervalLatchOn && len(h.intervalsLatched) > 0 {
			h.playIntervalSet(h.intervalsLatched, 1.0, true, true)
		}
	}
}

// currentPeriod returns the input period driving the grain analysis; when
// the frame is unpitched the last estimate carries over so sounding voices
// keep their output frequency.
func (h *Harmonizer) currentPeriod() int {
	var period float64
	if h.currentInputFreq > 0 {
		period = h.sampleRate / float64(h.currentInputFreq)
	} else {
		period = h.detector.LastPeriod()
	}

	p := int(math.Round(period))
	if p < h.detector.MinPeriod() {
		p = h.detector.MinPeriod()
	}
	if p > h.detector.MaxPeriod() {
		p = h.detector.MaxPeriod()
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
