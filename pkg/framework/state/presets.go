package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const presetExtension = ".xml"

// PresetsDir returns (and creates) the preset directory under the
// OS-specific application-data location.
func PresetsDir(appName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("presets: %w", err)
	}

	dir := filepath.Join(base, appName, "Presets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("presets: %w", err)
	}
	return dir, nil
}

// SavePreset writes the current state as one XML file named after the
// preset.
func (m *Manager) SavePreset(appName, name string) error {
	dir, err := PresetsDir(appName)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, sanitizePresetName(name)+presetExtension))
	if err != nil {
		return fmt.Errorf("presets: %w", err)
	}
	defer f.Close()

	return m.Save(f, name)
}

// LoadPreset loads a preset file; on failure the current state is untouched.
func (m *Manager) LoadPreset(appName, name string) error {
	dir, err := PresetsDir(appName)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(dir, sanitizePresetName(name)+presetExtension))
	if err != nil {
		return fmt.Errorf("presets: %w", err)
	}
	defer f.Close()

	return m.Load(f)
}

// DeletePreset removes a preset file.
func (m *Manager) DeletePreset(appName, name string) error {
	dir, err := PresetsDir(appName)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(dir, sanitizePresetName(name)+presetExtension))
}

// ListPresets returns the available preset names.
func ListPresets(appName string) ([]string, error) {
	dir, err := PresetsDir(appName)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("presets: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), presetExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), presetExtension))
	}
	return names, nil
}

func sanitizePresetName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	name = replacer.Replace(name)
	if name == "" {
		name = "untitled"
	}
	return name
}
