// Package state persists the plugin state as a single XML document: the
// parameter tree plus the voice count and modulator source attributes.
package state

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/msameen99/imogen/pkg/framework/param"
)

const defaultNumVoices = 4

type document struct {
	XMLName              xml.Name     `xml:"ImogenState"`
	PresetName           string       `xml:"presetName,attr,omitempty"`
	NumberOfVoices       int          `xml:"numberOfVoices,attr"`
	ModulatorInputSource int          `xml:"modulatorInputSource,attr"`
	Params               []paramValue `xml:"param"`
}

type paramValue struct {
	Key   string  `xml:"id,attr"`
	Value float64 `xml:"value,attr"`
}

// Manager handles saving and loading plugin state. Parameters are keyed by
// their stable string keys; unknown keys in a document are ignored for
// forward compatibility.
type Manager struct {
	registry *param.Registry

	NumberOfVoices       int
	ModulatorInputSource int
}

// NewManager creates a state manager over the given registry.
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		registry:       registry,
		NumberOfVoices: defaultNumVoices,
	}
}

// Save writes the current state to w, optionally tagged with a preset name.
func (m *Manager) Save(w io.Writer, presetName string) error {
	doc := document{
		PresetName:           presetName,
		NumberOfVoices:       m.NumberOfVoices,
		ModulatorInputSource: m.ModulatorInputSource,
	}

	for _, p := range m.registry.All() {
		doc.Params = append(doc.Params, paramValue{Key: p.Key, Value: p.GetPlainValue()})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("state save: %w", err)
	}
	return nil
}

// Load replaces the current state with the document read from r. On any
// parse error the current state is left untouched.
func (m *Manager) Load(r io.Reader) error {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("state load: %w", err)
	}

	if doc.NumberOfVoices > 0 {
		m.NumberOfVoices = doc.NumberOfVoices
	}
	if doc.ModulatorInputSource >= 0 && doc.ModulatorInputSource <= 2 {
		m.ModulatorInputSource = doc.ModulatorInputSource
	}

	byKey := make(map[string]*param.Parameter)
	for _, p := range m.registry.All() {
		byKey[p.Key] = p
	}

	for _, pv := range doc.Params {
		if p, ok := byKey[pv.Key]; ok {
			p.SetPlainValue(pv.Value)
		}
	}

	return nil
}
