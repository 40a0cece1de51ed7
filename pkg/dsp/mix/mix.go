// Package mix provides dry/wet mixing for the render path.
package mix

// DryWetBuffer performs in-place dry/wet mixing on audio buffers.
// amount parameter: 0.0 = 100% dry, 1.0 = 100% wet
func DryWetBuffer(dry, wet []float32, amount float32) {
	dryGain := 1.0 - amount
	wetGain := amount

	length := len(dry)
	if len(wet) < length {
		length = len(wet)
	}

	for i := 0; i < length; i++ {
		wet[i] = dry[i]*dryGain + wet[i]*wetGain
	}
}

// DryWetMixer keeps one stereo block of dry samples and mixes them with the
// wet block rendered afterwards, ramping the wet proportion across the block
// to keep parameter changes click-free.
type DryWetMixer struct {
	proportion     float32
	prevProportion float32

	dry    [2][]float32
	stored int
}

func NewDryWetMixer(maxBlockSize int) *DryWetMixer {
	m := &DryWetMixer{proportion: 1.0, prevProportion: 1.0}
	m.Prepare(maxBlockSize)
	return m
}

// Prepare resizes the dry storage for the given block size.
func (m *DryWetMixer) Prepare(maxBlockSize int) {
	for ch := range m.dry {
		if len(m.dry[ch]) != maxBlockSize {
			m.dry[ch] = make([]float32, maxBlockSize)
		}
	}
	m.stored = 0
}

// SetWetMixProportion sets the wet amount (0 = all dry, 1 = all wet).
func (m *DryWetMixer) SetWetMixProportion(p float32) {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	m.proportion = p
}

// PushDrySamples stores the dry stereo block for the upcoming mix.
func (m *DryWetMixer) PushDrySamples(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	if n > len(m.dry[0]) {
		n = len(m.dry[0])
	}
	copy(m.dry[0][:n], left[:n])
	copy(m.dry[1][:n], right[:n])
	m.stored = n
}

// MixWetSamples mixes the stored dry block with the wet block in place.
func (m *DryWetMixer) MixWetSamples(left, right []float32) {
	wet := [2][]float32{left, right}

	for ch := 0; ch < 2; ch++ {
		buf := wet[ch]
		n := len(buf)
		if n > m.stored {
			n = m.stored
		}
		if n == 0 {
			continue
		}

		p := m.prevProportion
		delta := float32(0)
		if n > 1 {
			delta = (m.proportion - m.prevProportion) / float32(n-1)
		}
		dry := m.dry[ch]
		for i := 0; i < n; i++ {
			buf[i] = dry[i]*(1-p) + buf[i]*p
			p += delta
		}
	}

	m.prevProportion = m.proportion
	m.stored = 0
}

// Reset clears stored dry audio and collapses the proportion ramp.
func (m *DryWetMixer) Reset() {
	m.stored = 0
	m.prevProportion = m.proportion
}
