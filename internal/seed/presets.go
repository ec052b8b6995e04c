package seed

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yml
var defaultPresets []byte

// Preset describes the shape of a seeded database.
type Preset struct {
	Users             int      `yaml:"users"`
	RecipesPerUser    int      `yaml:"recipes_per_user"`
	MaxLikesPerRecipe int      `yaml:"max_likes_per_recipe"`
	MaxDays           int      `yaml:"max_days"`
	Tags              []string `yaml:"tags"`
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// LoadPresets parses a presets document.
func LoadPresets(data []byte) (map[string]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(doc.Presets) == 0 {
		return nil, fmt.Errorf("no presets defined")
	}
	for name, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return doc.Presets, nil
}

// DefaultPresets returns the presets shipped with the binary.
func DefaultPresets() (map[string]Preset, error) {
	return LoadPresets(defaultPresets)
}

// PresetNames lists preset names in sorted order.
func PresetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the preset's counts.
func (p Preset) Validate() error {
	if p.Users <= 0 {
		return fmt.Errorf("users must be positive")
	}
	if p.RecipesPerUser < 0 || p.MaxLikesPerRecipe < 0 || p.MaxDays < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}
