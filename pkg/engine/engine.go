package engine

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"

	"github.com/msameen99/imogen/pkg/dsp/gain"
	"github.com/msameen99/imogen/pkg/dsp/mix"
	"github.com/msameen99/imogen/pkg/dsp/pan"
	"github.com/msameen99/imogen/pkg/harmonizer"
	"github.com/msameen99/imogen/pkg/midi"
)

// ModulatorSource selects how the input bus is reduced to the mono
// modulator signal.
type ModulatorSource int

const (
	ModulatorLeftChannel ModulatorSource = iota
	ModulatorRightChannel
	ModulatorMixToMono
)

// Engine drives the harmonizer at a fixed internal block size regardless of
// the host's buffer sizes, using an audio+MIDI FIFO pair on each side. It
// also owns the outer chain: input gain, dry panning, dry/wet mix, output
// gain, limiting, and the bypass passthrough that keeps latency constant.
//
// Everything here runs on the audio goroutine. The facade snapshots the
// parameter atomics once per host block and pushes values in through the
// setters before calling Process.
type Engine struct {
	harm *harmonizer.Harmonizer

	internalBlocksize int
	sampleRate        float64

	inputFIFO  *AudioFIFO
	outputFIFO *AudioFIFO

	midiInputFIFO  *midi.FIFO
	midiOutputFIFO *midi.FIFO

	hostMidi  *midi.EventQueue
	midiChunk []midi.Event
	midiPop   []midi.Event
	midiOut   []midi.Event

	inBuffer   []float32
	monoBuffer []float32
	dryLeft    []float32
	dryRight   []float32
	wetLeft    []float32
	wetRight   []float32

	dryWetMixer *mix.DryWetMixer
	dryPanner   *pan.MidiPanner

	limiterLeft  *dynamics.LookaheadLimiter
	limiterRight *dynamics.LookaheadLimiter
	limiterBuf   []float64
	limiterOn    bool

	inputGain  float32
	outputGain float32
	dryGain    float32
	wetGain    float32

	prevInputGain  float32
	prevOutputGain float32
	prevDryGain    float32
	prevWetGain    float32

	modulatorSource ModulatorSource

	initialized       bool
	resourcesReleased bool
}

func New(minHz, maxHz int, sampleRate float64) (*Engine, error) {
	harm, err := harmonizer.New(minHz, maxHz, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		harm:              harm,
		sampleRate:        sampleRate,
		hostMidi:          midi.NewEventQueue(),
		dryPanner:         pan.NewMidiPanner(),
		inputGain:         1.0,
		outputGain:        1.0,
		dryGain:           1.0,
		wetGain:           1.0,
		prevInputGain:     1.0,
		prevOutputGain:    1.0,
		prevDryGain:       1.0,
		prevWetGain:       1.0,
		resourcesReleased: true,
	}, nil
}

// Harmonizer exposes the voice engine for the facade's parameter pushes.
func (e *Engine) Harmonizer() *harmonizer.Harmonizer { return e.harm }

// Initialize sets up the engine for the given samplerate, host block size
// hint and voice count. Must be called before the first Process.
func (e *Engine) Initialize(sampleRate float64, samplesPerBlock, numVoices int) error {
	if sampleRate <= 0 || samplesPerBlock < 1 || numVoices < 1 {
		return fmt.Errorf("engine: invalid init (sr=%f block=%d voices=%d)", sampleRate, samplesPerBlock, numVoices)
	}

	if err := e.harm.SetNumVoices(numVoices); err != nil {
		return err
	}

	if err := e.Prepare(sampleRate, samplesPerBlock); err != nil {
		return err
	}

	e.initialized = true
	return nil
}

// Prepare (re)sizes every buffer for the current pitch-detection range.
// Called on samplerate or block size changes and after range changes, always
// with processing suspended.
func (e *Engine) Prepare(sampleRate float64, samplesPerBlock int) error {
	if sampleRate > 0 {
		e.sampleRate = sampleRate
	}
	_ = samplesPerBlock

	if err := e.harm.Prepare(e.sampleRate, e.harm.Latency()); err != nil {
		return err
	}
	e.internalBlocksize = e.harm.Latency()

	n := e.internalBlocksize

	if e.inputFIFO == nil {
		e.inputFIFO = NewAudioFIFO(1, n*2)
		e.outputFIFO = NewAudioFIFO(2, n*3)
	} else {
		e.inputFIFO.ChangeSize(1, n*2)
		e.outputFIFO.ChangeSize(2, n*3)
	}

	e.midiInputFIFO = midi.NewFIFO(128)
	e.midiOutputFIFO = midi.NewFIFO(128)

	// Prime the output side with one internal block of silence so the delay
	// through the FIFOs is exactly LatencySamples for any host block size and
	// the output never underflows.
	e.outputFIFO.Push([][]float32{make([]float32, n)}, n)
	e.midiOutputFIFO.Push(nil, int32(n))

	e.inBuffer = resize(e.inBuffer, n)
	e.monoBuffer = resize(e.monoBuffer, n)
	e.dryLeft = resize(e.dryLeft, n)
	e.dryRight = resize(e.dryRight, n)
	e.wetLeft = resize(e.wetLeft, n)
	e.wetRight = resize(e.wetRight, n)
	e.limiterBuf = resize64(e.limiterBuf, n)

	if e.dryWetMixer == nil {
		e.dryWetMixer = mix.NewDryWetMixer(n)
	} else {
		e.dryWetMixer.Prepare(n)
	}

	if e.limiterLeft == nil {
		var err error
		if e.limiterLeft, err = dynamics.NewLookaheadLimiter(e.sampleRate); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		if e.limiterRight, err = dynamics.NewLookaheadLimiter(e.sampleRate); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		// Zero lookahead so the limiter adds no delay of its own.
		_ = e.limiterLeft.SetLookahead(0)
		_ = e.limiterRight.SetLookahead(0)
	} else {
		_ = e.limiterLeft.SetSampleRate(e.sampleRate)
		_ = e.limiterRight.SetSampleRate(e.sampleRate)
	}

	e.prevInputGain = e.inputGain
	e.prevOutputGain = e.outputGain
	e.prevDryGain = e.dryGain
	e.prevWetGain = e.wetGain

	e.resourcesReleased = false
	return nil
}

// ReleaseResources drops the FIFO contents and marks the engine released.
func (e *Engine) ReleaseResources() {
	e.harm.AllNotesOff(false)
	if e.inputFIFO != nil {
		e.inputFIFO.Clear()
		e.outputFIFO.Clear()
	}
	if e.midiInputFIFO != nil {
		e.midiInputFIFO.Clear()
		e.midiOutputFIFO.Clear()
	}
	if e.dryWetMixer != nil {
		e.dryWetMixer.Reset()
	}
	if e.limiterLeft != nil {
		e.limiterLeft.Reset()
		e.limiterRight.Reset()
	}
	e.resourcesReleased = true
	e.initialized = false
}

// Reset kills all notes and collapses the gain ramps without resizing.
func (e *Engine) Reset() {
	e.harm.Reset()
	if e.dryWetMixer != nil {
		e.dryWetMixer.Reset()
	}
	if e.limiterLeft != nil {
		e.limiterLeft.Reset()
		e.limiterRight.Reset()
	}
	e.prevInputGain = e.inputGain
	e.prevOutputGain = e.outputGain
	e.prevDryGain = e.dryGain
	e.prevWetGain = e.wetGain
}

// LatencySamples is the one-internal-block delay introduced by the FIFOs,
// reported to the host. Bypassed processing travels the same path, so the
// latency matches in both states.
func (e *Engine) LatencySamples() int { return e.internalBlocksize }

// SetPitchDetectionRange reconfigures the detector and resizes everything
// that depends on the internal block length.
func (e *Engine) SetPitchDetectionRange(minHz, maxHz int) error {
	curMin, curMax := e.harm.PitchDetectionRange()
	if curMin == minHz && curMax == maxHz {
		return nil
	}
	e.harm.SetPitchDetectionRange(minHz, maxHz)
	return e.Prepare(e.sampleRate, e.internalBlocksize)
}

// SetNumVoices resizes the voice pool between blocks.
func (e *Engine) SetNumVoices(n int) error { return e.harm.SetNumVoices(n) }

func (e *Engine) SetModulatorSource(src ModulatorSource) { e.modulatorSource = src }

func (e *Engine) ModulatorSource() ModulatorSource { return e.modulatorSource }

func (e *Engine) SetInputGain(linear float32)  { e.inputGain = linear }
func (e *Engine) SetOutputGain(linear float32) { e.outputGain = linear }
func (e *Engine) SetDryGain(linear float32)    { e.dryGain = linear }
func (e *Engine) SetWetGain(linear float32)    { e.wetGain = linear }

func (e *Engine) SetDryWet(percentWet int) {
	if e.dryWetMixer != nil {
		e.dryWetMixer.SetWetMixProportion(float32(percentWet) / 100.0)
	}
}

func (e *Engine) SetDryPan(midiPan int) { e.dryPanner.SetMidiPan(midiPan) }

// SetLimiter configures the output limiter. Out-of-range values are clamped
// to the limiter's legal range rather than rejected.
func (e *Engine) SetLimiter(threshDb float64, releaseMs float64, on bool) {
	e.limiterOn = on
	if e.limiterLeft == nil {
		return
	}

	threshDb = clampFloat(threshDb, -24.0, 0.0)
	releaseMs = clampFloat(releaseMs, 1.0, 5000.0)

	_ = e.limiterLeft.SetThreshold(threshDb)
	_ = e.limiterRight.SetThreshold(threshDb)
	_ = e.limiterLeft.SetRelease(releaseMs)
	_ = e.limiterRight.SetRelease(releaseMs)
}

// Process is the host-facing entry point. in holds the selected input bus's
// channels, out the stereo output. midiIO carries the block's input events
// and is replaced with the engine's MIDI output. Host blocks larger than the
// internal block are sliced; fades are applied only to the first and last
// chunk.
func (e *Engine) Process(in [][]float32, out [][]float32, midiIO *midi.EventQueue, fadeIn, fadeOut, bypassed bool) {
	if !e.initialized || e.resourcesReleased {
		clearChannels(out)
		return
	}
	if len(in) == 0 || len(out) < 2 {
		clearChannels(out)
		return
	}

	totalSamples := len(in[0])
	if totalSamples == 0 {
		return
	}

	if totalSamples <= e.internalBlocksize {
		events := midiIO.AllEvents()
		outEvents := e.processWrapped(in, out, events, 0, totalSamples, fadeIn, fadeOut, bypassed)
		midiIO.Clear()
		midiIO.AddMultiple(outEvents)
		return
	}

	e.hostMidi.Clear()

	samplesLeft := totalSamples
	startSample := 0
	actuallyFadingIn := fadeIn
	actuallyFadingOut := fadeOut

	for samplesLeft > 0 {
		chunkNumSamples := e.internalBlocksize
		if samplesLeft < chunkNumSamples {
			chunkNumSamples = samplesLeft
		}

		e.midiChunk = midiIO.EventsInRange(int32(startSample), int32(startSample+chunkNumSamples), e.midiChunk[:0])

		lastChunk := samplesLeft == chunkNumSamples
		outEvents := e.processWrapped(in, out, e.midiChunk, startSample, chunkNumSamples,
			actuallyFadingIn, actuallyFadingOut && lastChunk, bypassed)

		for _, ev := range outEvents {
			e.hostMidi.Add(midi.WithOffset(ev, ev.SampleOffset()+int32(startSample)))
		}

		startSample += chunkNumSamples
		samplesLeft -= chunkNumSamples
		actuallyFadingIn = false
	}

	midiIO.Clear()
	midiIO.AddMultiple(e.hostMidi.AllEvents())
}

// processWrapped handles one chunk no larger than the internal block: FIFO
// in, render when a full block is buffered, FIFO out.
func (e *Engine) processWrapped(in [][]float32, out [][]float32, events []midi.Event,
	startSample, numSamples int, fadeIn, fadeOut, bypassed bool) []midi.Event {

	mono := e.reduceToMono(in, startSample, numSamples)

	e.inputFIFO.Push([][]float32{mono}, numSamples)
	e.midiInputFIFO.Push(events, int32(numSamples))

	if e.inputFIFO.NumStoredSamples() >= e.internalBlocksize {
		e.inputFIFO.Pop([][]float32{e.inBuffer}, e.internalBlocksize)
		e.midiPop = e.midiInputFIFO.Pop(int32(e.internalBlocksize), e.midiPop[:0])

		if bypassed {
			e.outputFIFO.Push([][]float32{e.inBuffer, e.inBuffer}, e.internalBlocksize)
			e.midiOutputFIFO.Push(e.midiPop, int32(e.internalBlocksize))
		} else {
			e.renderBlock(e.inBuffer, e.midiPop)
		}
	}

	outLeft := out[0][startSample : startSample+numSamples]
	outRight := out[1][startSample : startSample+numSamples]
	e.outputFIFO.Pop([][]float32{outLeft, outRight}, numSamples)

	e.midiOut = e.midiOutputFIFO.Pop(int32(numSamples), e.midiOut[:0])
	outEvents := e.midiOut

	if fadeIn {
		gain.Ramp(outLeft, 0.0, 1.0)
		gain.Ramp(outRight, 0.0, 1.0)
	}
	if fadeOut {
		gain.Ramp(outLeft, 1.0, 0.0)
		gain.Ramp(outRight, 1.0, 0.0)
	}

	return outEvents
}

// reduceToMono isolates the modulator from the input bus.
func (e *Engine) reduceToMono(in [][]float32, startSample, numSamples int) []float32 {
	mono := e.monoBuffer[:numSamples]

	switch e.modulatorSource {
	case ModulatorRightChannel:
		ch := len(in) - 1
		copy(mono, in[ch][startSample:startSample+numSamples])
	case ModulatorMixToMono:
		src := in[0][startSample : startSample+numSamples]
		copy(mono, src)
		if len(in) > 1 {
			for ch := 1; ch < len(in); ch++ {
				chunk := in[ch][startSample : startSample+numSamples]
				for i := range mono {
					mono[i] += chunk[i]
				}
			}
			gain.ApplyBuffer(mono, 1.0/float32(len(in)))
		}
	default: // left channel
		copy(mono, in[0][startSample:startSample+numSamples])
	}

	return mono
}

// renderBlock runs the full chain on exactly one internal block.
func (e *Engine) renderBlock(input []float32, events []midi.Event) {
	gain.Ramp(input, e.prevInputGain, e.inputGain)
	e.prevInputGain = e.inputGain

	e.dryPanner.ApplyTo(input, e.dryLeft, e.dryRight)
	gain.Ramp(e.dryLeft, e.prevDryGain, e.dryGain)
	gain.Ramp(e.dryRight, e.prevDryGain, e.dryGain)
	e.prevDryGain = e.dryGain

	e.dryWetMixer.PushDrySamples(e.dryLeft, e.dryRight)

	outEvents := e.harm.RenderVoices(input, e.wetLeft, e.wetRight, events)
	e.midiOutputFIFO.Push(outEvents, int32(e.internalBlocksize))

	gain.Ramp(e.wetLeft, e.prevWetGain, e.wetGain)
	gain.Ramp(e.wetRight, e.prevWetGain, e.wetGain)
	e.prevWetGain = e.wetGain

	e.dryWetMixer.MixWetSamples(e.wetLeft, e.wetRight)

	gain.Ramp(e.wetLeft, e.prevOutputGain, e.outputGain)
	gain.Ramp(e.wetRight, e.prevOutputGain, e.outputGain)
	e.prevOutputGain = e.outputGain

	if e.limiterOn && e.limiterLeft != nil {
		e.limitChannel(e.limiterLeft, e.wetLeft)
		e.limitChannel(e.limiterRight, e.wetRight)
	}

	e.outputFIFO.Push([][]float32{e.wetLeft, e.wetRight}, e.internalBlocksize)
}

func (e *Engine) limitChannel(l *dynamics.LookaheadLimiter, buf []float32) {
	b := e.limiterBuf[:len(buf)]
	for i, v := range buf {
		b[i] = float64(v)
	}
	l.ProcessInPlace(b)
	for i := range buf {
		buf[i] = float32(b[i])
	}
}

func resize(buf []float32, n int) []float32 {
	if len(buf) == n {
		return buf
	}
	return make([]float32, n)
}

func resize64(buf []float64, n int) []float64 {
	if len(buf) == n {
		return buf
	}
	return make([]float64, n)
}

func clearChannels(out [][]float32) {
	for _, ch := range out {
		for i := range ch {
			ch[i] = 0
		}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
