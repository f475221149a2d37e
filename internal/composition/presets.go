package composition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ---------------------------------------------------------------------------
// Quick-start presets (TOML-based)
// ---------------------------------------------------------------------------

// Preset is a named composition applied wholesale.
type Preset struct {
	Label    string  `toml:"label"`
	Elements []Entry `toml:"elements"`
}

type presetFile struct {
	Preset []Preset `toml:"preset"`
}

const defaultPresetsTOML = `# crystalgen composition presets
# Add [[preset]] blocks to extend the quick-start list.

[[preset]]
label = "FeO"
elements = [{ element = "Fe", amount = 1.0 }, { element = "O", amount = 1.0 }]

[[preset]]
label = "TiO₂"
elements = [{ element = "Ti", amount = 1.0 }, { element = "O", amount = 2.0 }]

[[preset]]
label = "NaCl"
elements = [{ element = "Na", amount = 1.0 }, { element = "Cl", amount = 1.0 }]

[[preset]]
label = "SiO₂"
elements = [{ element = "Si", amount = 1.0 }, { element = "O", amount = 2.0 }]
`

// DefaultPresets returns the built-in quick-start chemistries.
func DefaultPresets() []Preset {
	return []Preset{
		{Label: "FeO", Elements: []Entry{{"Fe", 1}, {"O", 1}}},
		{Label: "TiO₂", Elements: []Entry{{"Ti", 1}, {"O", 2}}},
		{Label: "NaCl", Elements: []Entry{{"Na", 1}, {"Cl", 1}}},
		{Label: "SiO₂", Elements: []Entry{{"Si", 1}, {"O", 2}}},
	}
}

// LoadPresets reads presets from path. A missing file is created with the
// defaults. On any error the defaults are returned alongside the error.
func LoadPresets(path string) ([]Preset, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPresets(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return DefaultPresets(), fmt.Errorf("create presets dir: %w", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(defaultPresetsTOML), 0o644); wErr != nil {
			return DefaultPresets(), fmt.Errorf("write default presets: %w", wErr)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPresets(), fmt.Errorf("read presets: %w", err)
	}
	presets, err := ParsePresets(data)
	if err != nil {
		return DefaultPresets(), err
	}
	return presets, nil
}

// ParsePresets parses TOML bytes into presets.
func ParsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets.toml: %w", err)
	}
	if len(f.Preset) == 0 {
		return nil, fmt.Errorf("no presets defined")
	}
	for i, p := range f.Preset {
		if strings.TrimSpace(p.Label) == "" {
			return nil, fmt.Errorf("preset[%d]: label is required", i)
		}
		if len(p.Elements) == 0 {
			return nil, fmt.Errorf("preset[%d] %q: elements are required", i, p.Label)
		}
		for j, e := range p.Elements {
			if strings.TrimSpace(e.Element) == "" || !ValidAmount(e.Amount) {
				return nil, fmt.Errorf("preset[%d] %q: element[%d] needs a symbol and a finite positive amount", i, p.Label, j)
			}
		}
	}
	return f.Preset, nil
}

// FindPreset looks up a preset by label (case-insensitive).
func FindPreset(presets []Preset, label string) *Preset {
	for i := range presets {
		if strings.EqualFold(presets[i].Label, label) {
			return &presets[i]
		}
	}
	return nil
}
