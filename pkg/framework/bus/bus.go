// Package bus describes the plugin's audio bus arrangement and validates
// host-proposed layouts.
package bus

// MediaType represents the type of bus
type MediaType int32

const (
	MediaTypeAudio MediaType = 0
	MediaTypeEvent MediaType = 1
)

// Direction represents the bus direction
type Direction int32

const (
	DirectionInput  Direction = 0
	DirectionOutput Direction = 1
)

// Info describes one bus.
type Info struct {
	MediaType    MediaType
	Direction    Direction
	ChannelCount int32
	Name         string
	IsAux        bool
	IsActive     bool
}

// Configuration manages the audio and event buses.
type Configuration struct {
	audioBuses []Info
	eventBuses []Info
}

// NewHarmonizerConfiguration builds the Imogen arrangement: a stereo main
// input, a mono sidechain (inactive by default), a stereo main output, and
// MIDI event buses both ways.
func NewHarmonizerConfiguration() *Configuration {
	return &Configuration{
		audioBuses: []Info{
			{MediaType: MediaTypeAudio, Direction: DirectionInput, ChannelCount: 2, Name: "Input", IsActive: true},
			{MediaType: MediaTypeAudio, Direction: DirectionInput, ChannelCount: 1, Name: "Sidechain", IsAux: true},
			{MediaType: MediaTypeAudio, Direction: DirectionOutput, ChannelCount: 2, Name: "Output", IsActive: true},
		},
		eventBuses: []Info{
			{MediaType: MediaTypeEvent, Direction: DirectionInput, ChannelCount: 1, Name: "MIDI In", IsActive: true},
			{MediaType: MediaTypeEvent, Direction: DirectionOutput, ChannelCount: 1, Name: "MIDI Out", IsActive: true},
		},
	}
}

// AudioBuses returns the audio bus infos.
func (c *Configuration) AudioBuses() []Info { return c.audioBuses }

// EventBuses returns the event bus infos.
func (c *Configuration) EventBuses() []Info { return c.eventBuses }

// SetSidechainActive toggles the aux input bus.
func (c *Configuration) SetSidechainActive(active bool) {
	for i := range c.audioBuses {
		if c.audioBuses[i].IsAux && c.audioBuses[i].Direction == DirectionInput {
			c.audioBuses[i].IsActive = active
		}
	}
}

// SidechainActive reports whether the aux input is enabled.
func (c *Configuration) SidechainActive() bool {
	for _, b := range c.audioBuses {
		if b.IsAux && b.Direction == DirectionInput {
			return b.IsActive
		}
	}
	return false
}

// IsLayoutSupported applies the harmonizer's layout rule: the output must be
// stereo, and at least one of the main input or the sidechain must be
// enabled to supply the modulator.
func IsLayoutSupported(mainInChannels, sidechainChannels, outChannels int) bool {
	if outChannels != 2 {
		return false
	}
	return mainInChannels > 0 || sidechainChannels > 0
}
