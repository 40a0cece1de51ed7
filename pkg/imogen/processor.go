package imogen

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/msameen99/imogen/pkg/dsp/gain"
	"github.com/msameen99/imogen/pkg/engine"
	"github.com/msameen99/imogen/pkg/framework/bus"
	"github.com/msameen99/imogen/pkg/framework/debug"
	"github.com/msameen99/imogen/pkg/framework/param"
	"github.com/msameen99/imogen/pkg/framework/state"
	"github.com/msameen99/imogen/pkg/midi"
)

// AppName names the application-data directory for presets.
const AppName = "Imogen"

// Info describes the plugin to hosts.
type Info struct {
	ID       string
	Name     string
	Version  string
	Vendor   string
	Category string
}

// PluginInfo returns the static plugin metadata.
func PluginInfo() Info {
	return Info{
		ID:       "com.msameen99.imogen",
		Name:     "Imogen",
		Version:  "1.0.0",
		Vendor:   "msameen99",
		Category: "Instrument|Harmonizer",
	}
}

// Processor is the thin host-facing glue: it samples every parameter once
// per block and forwards audio and MIDI to the chunking engine. Hosts may
// deliver 32- or 64-bit buffers; the 64-bit path converts at the boundary
// into preallocated buffers.
type Processor struct {
	params   *param.Registry
	buses    *bus.Configuration
	stateMgr *state.Manager
	engine   *engine.Engine
	log      *debug.Logger

	tempo  TempoSource
	remote RemoteControl

	sampleRate   float64
	maxBlockSize int
	initialized  bool
	suspended    atomic.Bool

	wasBypassed bool

	prevVocalRange VocalRange

	// conversion buffers for the double-precision path
	conv32In   [2][]float32
	conv32Out  [2][]float32
	conv32Side []float32
}

// NewProcessor creates an uninitialized processor; call Initialize once the
// host reports samplerate and block size.
func NewProcessor() *Processor {
	p := &Processor{
		params: newParameterRegistry(),
		buses:  bus.NewHarmonizerConfiguration(),
		log:    debug.Default(),
		tempo:  NoTempo{},
		remote: NoRemote{},
	}
	p.stateMgr = state.NewManager(p.params)
	return p
}

// Parameters exposes the registry for hosts and remotes.
func (p *Processor) Parameters() *param.Registry { return p.params }

// Buses exposes the bus configuration.
func (p *Processor) Buses() *bus.Configuration { return p.buses }

// Engine exposes the chunking engine (tests and the demo player use this).
func (p *Processor) Engine() *engine.Engine { return p.engine }

// SetTempoSource installs the tempo sync peer.
func (p *Processor) SetTempoSource(t TempoSource) {
	if t != nil {
		p.tempo = t
	}
}

// CurrentTempoBpm reads the session tempo from the tempo peer.
func (p *Processor) CurrentTempoBpm() float64 {
	return p.tempo.SessionTempoBpm()
}

// SetRemoteControl installs the remote-control peer.
func (p *Processor) SetRemoteControl(r RemoteControl) {
	if r != nil {
		p.remote = r
	}
}

// Initialize prepares the engine for the host's samplerate and block size.
func (p *Processor) Initialize(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 || maxBlockSize < 1 {
		return fmt.Errorf("processor: invalid init (sr=%f block=%d)", sampleRate, maxBlockSize)
	}

	p.sampleRate = sampleRate
	p.maxBlockSize = maxBlockSize

	vocalRange := VocalRange(p.params.Get(ParamVocalRange).GetIntValue())
	minHz, maxHz := vocalRange.HzRange()

	if p.engine == nil {
		eng, err := engine.New(minHz, maxHz, sampleRate)
		if err != nil {
			return err
		}
		p.engine = eng
	}

	if err := p.engine.Initialize(sampleRate, maxBlockSize, p.stateMgr.NumberOfVoices); err != nil {
		return err
	}
	p.engine.SetModulatorSource(engine.ModulatorSource(p.stateMgr.ModulatorInputSource))

	p.prevVocalRange = vocalRange

	for ch := 0; ch < 2; ch++ {
		p.conv32In[ch] = make([]float32, maxBlockSize)
		p.conv32Out[ch] = make([]float32, maxBlockSize)
	}
	p.conv32Side = make([]float32, maxBlockSize)

	p.initialized = true
	p.log.Info("initialized: sr=%.0f block=%d voices=%d range=%s",
		sampleRate, maxBlockSize, p.stateMgr.NumberOfVoices, vocalRange)
	return nil
}

// LatencySamples reports the fixed one-internal-block latency.
func (p *Processor) LatencySamples() int {
	if p.engine == nil {
		return 0
	}
	return p.engine.LatencySamples()
}

// IsLayoutSupported validates a host-proposed bus layout.
func (p *Processor) IsLayoutSupported(mainInChannels, sidechainChannels, outChannels int) bool {
	return bus.IsLayoutSupported(mainInChannels, sidechainChannels, outChannels)
}

// SetActive is called when the host starts or stops processing.
func (p *Processor) SetActive(active bool) {
	if !active && p.engine != nil {
		p.engine.Reset()
	}
}

// ReleaseResources drops the engine buffers.
func (p *Processor) ReleaseResources() {
	if p.engine != nil {
		p.engine.ReleaseResources()
	}
	p.initialized = false
}

// ProcessBlock handles one host callback. mainIn holds the main input bus;
// sidechainIn is nil unless the sidechain bus is active. midiIO carries the
// block's MIDI input and receives the MIDI output. The audio path never
// fails: impossible conditions produce cleared output.
func (p *Processor) ProcessBlock(mainIn, sidechainIn, out [][]float32, midiIO *midi.EventQueue) {
	if !p.initialized || p.suspended.Load() || len(out) < 2 {
		clearAll(out)
		return
	}

	inputBus := mainIn
	if p.buses.SidechainActive() {
		if len(sidechainIn) == 0 || len(sidechainIn[0]) == 0 {
			// Host promised a sidechain but delivered none; skip the block.
			clearAll(out)
			return
		}
		inputBus = sidechainIn
	}
	if len(inputBus) == 0 {
		clearAll(out)
		return
	}

	p.updateAllParameters()

	bypassed := p.params.Get(ParamMainBypass).GetBoolValue()
	fadeOut := bypassed && !p.wasBypassed
	fadeIn := !bypassed && p.wasBypassed

	// The block that crosses into bypass still renders, fading out, so the
	// transition is click-free; passthrough starts on the next block.
	engineBypassed := bypassed && !fadeOut
	p.engine.Process(inputBus, out, midiIO, fadeIn, fadeOut, engineBypassed)

	p.wasBypassed = bypassed
}

// ProcessBlock64 is the double-precision entry point; it converts through
// preallocated float32 buffers and back.
func (p *Processor) ProcessBlock64(mainIn, sidechainIn, out [][]float64, midiIO *midi.EventQueue) {
	if !p.initialized || len(out) < 2 {
		for _, ch := range out {
			for i := range ch {
				ch[i] = 0
			}
		}
		return
	}

	n := 0
	if len(mainIn) > 0 {
		n = len(mainIn[0])
	}
	if n > p.maxBlockSize {
		n = p.maxBlockSize
	}

	in32 := make([][]float32, 0, 2)
	for ch := 0; ch < len(mainIn) && ch < 2; ch++ {
		buf := p.conv32In[ch][:n]
		for i := 0; i < n; i++ {
			buf[i] = float32(mainIn[ch][i])
		}
		in32 = append(in32, buf)
	}

	var side32 [][]float32
	if len(sidechainIn) > 0 && len(sidechainIn[0]) >= n {
		buf := p.conv32Side[:n]
		for i := 0; i < n; i++ {
			buf[i] = float32(sidechainIn[0][i])
		}
		side32 = [][]float32{buf}
	}

	out32 := [][]float32{p.conv32Out[0][:n], p.conv32Out[1][:n]}

	p.ProcessBlock(in32, side32, out32, midiIO)

	for ch := 0; ch < 2 && ch < len(out); ch++ {
		for i := 0; i < n && i < len(out[ch]); i++ {
			out[ch][i] = float64(out32[ch][i])
		}
	}
}

// updateAllParameters snapshots every atomic exactly once and pushes the
// values into the engine. Within the block all changes are seen together.
func (p *Processor) updateAllParameters() {
	e := p.engine
	h := e.Harmonizer()

	e.SetInputGain(float32(gain.DbToLinear(p.params.Get(ParamInputGain).GetPlainValue())))
	e.SetOutputGain(float32(gain.DbToLinear(p.params.Get(ParamOutputGain).GetPlainValue())))

	dryGain, wetGain := float32(1), float32(1)
	if p.params.Get(ParamLeadBypass).GetBoolValue() {
		dryGain = 0
	}
	if p.params.Get(ParamHarmonyBypass).GetBoolValue() {
		wetGain = 0
	}
	e.SetDryGain(dryGain)
	e.SetWetGain(wetGain)

	e.SetDryPan(p.params.Get(ParamDryPan).GetIntValue())
	e.SetDryWet(p.params.Get(ParamDryWet).GetIntValue())
	e.SetLimiter(-0.3, 35.0, p.params.Get(ParamLimiterToggle).GetBoolValue())

	h.SetADSR(
		p.params.Get(ParamAdsrAttack).GetPlainValue(),
		p.params.Get(ParamAdsrDecay).GetPlainValue(),
		p.params.Get(ParamAdsrSustain).GetPlainValue(),
		p.params.Get(ParamAdsrRelease).GetPlainValue(),
		p.params.Get(ParamAdsrOnOff).GetBoolValue(),
	)

	h.SetStereoWidth(p.params.Get(ParamStereoWidth).GetIntValue())
	h.SetLowestPannedNote(p.params.Get(ParamLowestPannedNote).GetIntValue())
	h.SetVelocitySensitivity(p.params.Get(ParamVelocitySensitivity).GetIntValue())
	h.SetPitchBendRange(
		p.params.Get(ParamPitchBendUpRange).GetIntValue(),
		p.params.Get(ParamPitchBendDownRange).GetIntValue(),
	)
	h.SetConcertPitchHz(p.params.Get(ParamConcertPitch).GetIntValue())
	h.SetNoteStealingEnabled(p.params.Get(ParamVoiceStealing).GetBoolValue())
	h.SetAftertouchGainOn(p.params.Get(ParamAftertouchGain).GetBoolValue())

	h.SetPedalPitch(
		p.params.Get(ParamPedalPitchToggle).GetBoolValue(),
		p.params.Get(ParamPedalPitchThresh).GetIntValue(),
		p.params.Get(ParamPedalPitchInterval).GetIntValue(),
	)
	h.SetDescant(
		p.params.Get(ParamDescantToggle).GetBoolValue(),
		p.params.Get(ParamDescantThresh).GetIntValue(),
		p.params.Get(ParamDescantInterval).GetIntValue(),
	)

	if vr := VocalRange(p.params.Get(ParamVocalRange).GetIntValue()); vr != p.prevVocalRange {
		p.applyVocalRange(vr)
	}
}

// applyVocalRange changes the pitch-detection range, which resizes the
// engine and therefore runs with processing suspended.
func (p *Processor) applyVocalRange(vr VocalRange) {
	p.suspended.Store(true)
	defer p.suspended.Store(false)

	minHz, maxHz := vr.HzRange()
	if err := p.engine.SetPitchDetectionRange(minHz, maxHz); err != nil {
		p.log.Error("vocal range change failed: %v", err)
		return
	}
	p.prevVocalRange = vr
	p.log.Info("vocal range: %s (%d-%d Hz), latency now %d samples", vr, minHz, maxHz, p.engine.LatencySamples())
}

// SetMidiLatch toggles the note latch and notifies the remote peer.
func (p *Processor) SetMidiLatch(on bool) {
	if p.engine != nil {
		p.engine.Harmonizer().SetMidiLatch(on, true)
	}
	p.remote.SendMidiLatch(on)
}

// SetIntervalLatch toggles the interval latch.
func (p *Processor) SetIntervalLatch(on bool) {
	if p.engine != nil {
		p.engine.Harmonizer().SetIntervalLatch(on, true)
	}
}

// SetNumVoices resizes the voice pool; runs with processing suspended.
func (p *Processor) SetNumVoices(n int) error {
	p.suspended.Store(true)
	defer p.suspended.Store(false)

	if err := p.engine.SetNumVoices(n); err != nil {
		return err
	}
	p.stateMgr.NumberOfVoices = n
	return nil
}

// NumVoices returns the configured pool size.
func (p *Processor) NumVoices() int { return p.stateMgr.NumberOfVoices }

// SetModulatorSource selects which input channel feeds the pitch detector.
func (p *Processor) SetModulatorSource(src engine.ModulatorSource) {
	p.stateMgr.ModulatorInputSource = int(src)
	if p.engine != nil {
		p.engine.SetModulatorSource(src)
	}
}

// SaveState writes the full plugin state as XML.
func (p *Processor) SaveState(w io.Writer) error {
	return p.stateMgr.Save(w, "")
}

// LoadState restores state from XML. On parse errors the current state is
// untouched and the error is returned.
func (p *Processor) LoadState(r io.Reader) error {
	if err := p.stateMgr.Load(r); err != nil {
		p.log.Warn("state load failed: %v", err)
		return err
	}
	return p.applyLoadedState()
}

// SavePreset stores the state as a named preset file.
func (p *Processor) SavePreset(name string) error {
	return p.stateMgr.SavePreset(AppName, name)
}

// LoadPreset restores a named preset file.
func (p *Processor) LoadPreset(name string) error {
	if err := p.stateMgr.LoadPreset(AppName, name); err != nil {
		p.log.Warn("preset load failed: %v", err)
		return err
	}
	return p.applyLoadedState()
}

func (p *Processor) applyLoadedState() error {
	if p.engine == nil {
		return nil
	}

	p.suspended.Store(true)
	defer p.suspended.Store(false)

	if err := p.engine.SetNumVoices(p.stateMgr.NumberOfVoices); err != nil {
		return err
	}
	p.engine.SetModulatorSource(engine.ModulatorSource(p.stateMgr.ModulatorInputSource))
	return nil
}

func clearAll(out [][]float32) {
	for _, ch := range out {
		for i := range ch {
			ch[i] = 0
		}
	}
}
