package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/leadimport/internal/core"
)

// Preset is a saved mapping for a recurring export:
//
//	mappings:
//	  "Nombre completo": name
//	  "Stage": status
//	  "Internal ID": skip
type Preset struct {
	Mappings map[string]string `yaml:"mappings"`
}

// LoadPreset reads a YAML preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(p.Mappings) == 0 {
		return nil, fmt.Errorf("preset %s has no mappings", path)
	}
	return &p, nil
}

// Apply overlays the preset on a loaded session. Columns the file does not
// have are ignored so one preset can serve several exports; unknown target
// fields are an error.
func (p *Preset) Apply(sess *core.Session) error {
	headers := sess.Headers()

	columns := make([]string, 0, len(p.Mappings))
	for column := range p.Mappings {
		columns = append(columns, column)
	}
	slices.Sort(columns)

	for _, column := range columns {
		if !slices.Contains(headers, column) {
			slog.Warn("preset column not in file, ignoring", "column", column)
			continue
		}
		if err := sess.SetMapping(column, p.Mappings[column]); err != nil {
			return err
		}
	}
	return nil
}
