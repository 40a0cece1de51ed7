// Package pan provides stereo panning from MIDI pan values (0..127).
package pan

import (
	"math"
)

// GainsForMidiPan returns the constant-power channel gains for a MIDI pan
// value: 0 is hard left, 64 center, 127 hard right.
func GainsForMidiPan(pan int) (left, right float32) {
	if pan < 0 {
		pan = 0
	} else if pan > 127 {
		pan = 127
	}
	angle := float64(pan) * math.Pi / 254.0
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

// MidiPanner holds a pan position together with the gains of the previous
// block so that pan changes can be ramped without zipper noise.
type MidiPanner struct {
	pan       int
	gains     [2]float32
	prevGains [2]float32
}

func NewMidiPanner() *MidiPanner {
	p := &MidiPanner{}
	p.Reset(64)
	return p
}

// Reset snaps the panner to the given pan with no pending ramp.
func (p *MidiPanner) Reset(pan int) {
	p.pan = clampPan(pan)
	p.gains[0], p.gains[1] = GainsForMidiPan(p.pan)
	p.prevGains = p.gains
}

// SetMidiPan moves the pan target; the gains of the previous position are
// kept as ramp anchors until the next call to Advance.
func (p *MidiPanner) SetMidiPan(pan int) {
	pan = clampPan(pan)
	if pan == p.pan {
		return
	}
	p.prevGains = p.gains
	p.pan = pan
	p.gains[0], p.gains[1] = GainsForMidiPan(pan)
}

// Pan returns the current MIDI pan value.
func (p *MidiPanner) Pan() int {
	return p.pan
}

// GainMult returns the target gain for channel ch (0 left, 1 right).
func (p *MidiPanner) GainMult(ch int) float32 {
	return p.gains[ch&1]
}

// PrevGain returns the ramp anchor gain for channel ch.
func (p *MidiPanner) PrevGain(ch int) float32 {
	return p.prevGains[ch&1]
}

// Advance marks the current gains as reached, collapsing the ramp.
func (p *MidiPanner) Advance() {
	p.prevGains = p.gains
}

// ApplyTo writes src panned into the two stereo destination buffers, ramping
// from the previous gains to the current ones across the block.
func (p *MidiPanner) ApplyTo(src []float32, left, right []float32) {
	n := len(src)
	if len(left) < n {
		n = len(left)
	}
	if len(right) < n {
		n = len(right)
	}
	if n == 0 {
		return
	}

	rampTo(src[:n], left[:n], p.prevGains[0], p.gains[0])
	rampTo(src[:n], right[:n], p.prevGains[1], p.gains[1])
	p.Advance()
}

func rampTo(src, dst []float32, startGain, endGain float32) {
	if len(src) == 1 || startGain == endGain {
		for i := range src {
			dst[i] = src[i] * endGain
		}
		return
	}
	delta := (endGain - startGain) / float32(len(src)-1)
	g := startGain
	for i := range src {
		dst[i] = src[i] * g
		g += delta
	}
}

func clampPan(pan int) int {
	if pan < 0 {
		return 0
	}
	if pan > 127 {
		return 127
	}
	return pan
}
