package targeting

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Preset is a named, ready-made filter.
type Preset struct {
	Key      string         `json:"key" yaml:"key"`
	Label    string         `json:"label" yaml:"label"`
	Criteria FilterCriteria `json:"criteria" yaml:"criteria"`
}

type presetDocument struct {
	Presets []Preset `yaml:"presets"`
}

// DefaultPresets returns the built-in quick filters.
func DefaultPresets() ([]Preset, error) {
	return ParsePresets(defaultPresets)
}

// ParsePresets decodes a YAML preset document and validates every entry.
func ParsePresets(data []byte) ([]Preset, error) {
	var doc presetDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.Key == "" {
			return nil, &ValidationError{Field: "preset.key", Reason: "must not be empty"}
		}
		if _, dup := seen[p.Key]; dup {
			return nil, &ValidationError{Field: "preset.key", Reason: fmt.Sprintf("duplicate key %q", p.Key)}
		}
		seen[p.Key] = struct{}{}
		if err := p.Criteria.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Key, err)
		}
	}
	return doc.Presets, nil
}

// FindPreset returns the preset with key.
func FindPreset(presets []Preset, key string) (Preset, bool) {
	for _, p := range presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}
