// Package imogen is the host-facing facade: it owns the parameter tree,
// persisted state and the dual-precision entry points, and forwards each
// block to the chunking engine after one parameter snapshot.
package imogen

import (
	"math"

	"github.com/msameen99/imogen/pkg/framework/param"
)

// Parameter IDs. The string keys next to them are the stable persistence
// identifiers and never change.
const (
	ParamMainBypass uint32 = iota
	ParamLeadBypass
	ParamHarmonyBypass
	ParamDryPan
	ParamDryWet
	ParamInputGain
	ParamOutputGain
	ParamAdsrAttack
	ParamAdsrDecay
	ParamAdsrSustain
	ParamAdsrRelease
	ParamAdsrOnOff
	ParamStereoWidth
	ParamLowestPannedNote
	ParamVelocitySensitivity
	ParamPitchBendUpRange
	ParamPitchBendDownRange
	ParamConcertPitch
	ParamVoiceStealing
	ParamAftertouchGain
	ParamPedalPitchToggle
	ParamPedalPitchThresh
	ParamPedalPitchInterval
	ParamDescantToggle
	ParamDescantThresh
	ParamDescantInterval
	ParamLimiterToggle
	ParamVocalRange
)

// VocalRange indexes the pitch-detection presets.
type VocalRange int

const (
	VocalRangeSoprano VocalRange = iota
	VocalRangeAlto
	VocalRangeTenor
	VocalRangeBass
)

// HzRange returns the detection bounds for the preset, derived from the
// singable MIDI ranges of each voice type.
func (v VocalRange) HzRange() (minHz, maxHz int) {
	var lowNote, highNote int
	switch v {
	case VocalRangeAlto:
		lowNote, highNote = 50, 81
	case VocalRangeTenor:
		lowNote, highNote = 43, 76
	case VocalRangeBass:
		lowNote, highNote = 36, 67
	default: // soprano
		lowNote, highNote = 57, 88
	}
	return int(math.Round(noteHz(lowNote))), int(math.Round(noteHz(highNote)))
}

func (v VocalRange) String() string {
	switch v {
	case VocalRangeAlto:
		return "Alto"
	case VocalRangeTenor:
		return "Tenor"
	case VocalRangeBass:
		return "Bass"
	default:
		return "Soprano"
	}
}

func noteHz(note int) float64 {
	return 440.0 * math.Exp2(float64(note-69)/12.0)
}

// newParameterRegistry declares the full parameter surface; every value is
// persisted in preset state and sampled once per host block.
func newParameterRegistry() *param.Registry {
	r := param.NewRegistry()

	r.Add(
		param.New(ParamMainBypass, "Bypass").Key("mainBypass").Toggle().Bypass().Build(),
		param.New(ParamLeadBypass, "Lead Bypass").Key("leadBypass").Toggle().Build(),
		param.New(ParamHarmonyBypass, "Harmony Bypass").Key("harmonyBypass").Toggle().Build(),

		param.New(ParamDryPan, "Dry Vox Pan").Key("dryPan").Range(0, 127).Default(64).Steps(128).Build(),
		param.PercentParameter(ParamDryWet, "% Wet", 100).Key("masterDryWet").Build(),
		param.GainParameter(ParamInputGain, "Input Gain", -60, 0, 0).Key("inputGain").Build(),
		param.GainParameter(ParamOutputGain, "Output Gain", -60, 0, -4).Key("outputGain").Build(),

		param.New(ParamAdsrAttack, "ADSR Attack").Key("adsrAttack").
			Range(0.001, 1.0).Default(0.035).Unit("s").
			Formatter(param.SecondsFormatter, param.SecondsParser).Build(),
		param.New(ParamAdsrDecay, "ADSR Decay").Key("adsrDecay").
			Range(0.001, 1.0).Default(0.06).Unit("s").
			Formatter(param.SecondsFormatter, param.SecondsParser).Build(),
		param.New(ParamAdsrSustain, "ADSR Sustain").Key("adsrSustain").
			Range(0.01, 1.0).Default(0.8).Build(),
		param.New(ParamAdsrRelease, "ADSR Release").Key("adsrRelease").
			Range(0.001, 1.0).Default(0.1).Unit("s").
			Formatter(param.SecondsFormatter, param.SecondsParser).Build(),
		param.New(ParamAdsrOnOff, "ADSR On/Off").Key("adsrOnOff").Toggle().Default(1).Build(),

		param.New(ParamStereoWidth, "Stereo Width").Key("stereoWidth").Range(0, 100).Default(100).Steps(101).Build(),
		param.New(ParamLowestPannedNote, "Lowest Panned Note").Key("lowestPan").Range(0, 127).Default(0).Steps(128).Build(),

		param.New(ParamVelocitySensitivity, "Velocity Sensitivity").Key("midiVelocitySensitivity").
			Range(0, 100).Default(100).Steps(101).Build(),
		param.New(ParamPitchBendUpRange, "Pitch Bend Range (Up)").Key("pitchBendUpRange").
			Range(0, 12).Default(2).Steps(13).Unit("st").Build(),
		param.New(ParamPitchBendDownRange, "Pitch Bend Range (Down)").Key("pitchBendDownRange").
			Range(0, 12).Default(2).Steps(13).Unit("st").Build(),
		param.New(ParamConcertPitch, "Concert Pitch").Key("concertPitch").
			Range(392, 494).Default(440).Steps(103).Unit("Hz").
			Formatter(param.FrequencyFormatter, nil).Build(),
		param.New(ParamVoiceStealing, "Voice Stealing").Key("voiceStealing").Toggle().Build(),
		param.New(ParamAftertouchGain, "Aftertouch Gain").Key("aftertouchGainToggle").Toggle().Default(1).Build(),

		param.New(ParamPedalPitchToggle, "Pedal Pitch").Key("pedalPitchToggle").Toggle().Build(),
		param.New(ParamPedalPitchThresh, "Pedal Pitch Threshold").Key("pedalPitchThresh").
			Range(0, 127).Default(0).Steps(128).Build(),
		param.New(ParamPedalPitchInterval, "Pedal Pitch Interval").Key("pedalPitchInterval").
			Range(1, 12).Default(12).Steps(12).Unit("st").Build(),

		param.New(ParamDescantToggle, "Descant").Key("descantToggle").Toggle().Build(),
		param.New(ParamDescantThresh, "Descant Threshold").Key("descantThresh").
			Range(0, 127).Default(127).Steps(128).Build(),
		param.New(ParamDescantInterval, "Descant Interval").Key("descantInterval").
			Range(1, 12).Default(12).Steps(12).Unit("st").Build(),

		param.New(ParamLimiterToggle, "Limiter").Key("limiterIsOn").Toggle().Default(1).Build(),

		param.Choice(ParamVocalRange, "Vocal Range", []param.ChoiceOption{
			{Value: float64(VocalRangeSoprano), Name: "Soprano"},
			{Value: float64(VocalRangeAlto), Name: "Alto"},
			{Value: float64(VocalRangeTenor), Name: "Tenor"},
			{Value: float64(VocalRangeBass), Name: "Bass"},
		}).Key("vocalRangeType").Build(),
	)

	return r
}
