package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"promptrun/pkg/types"
)

// LoadModels reads and validates a model registry file: a YAML list where
// each model has a name plus optional kind, options, and flags. The kind
// defaults to the one given; image registries pass types.KindImage.
func LoadModels(path string, kind types.Kind) ([]types.ModelSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(path, "read", err)
	}
	var models []types.ModelSpec
	if err := yaml.Unmarshal(b, &models); err != nil {
		return nil, wrapErr(path, "parse yaml", err)
	}
	seen := make(map[string]bool, len(models))
	for i, m := range models {
		if m.ID == "" {
			return nil, Errorf(path, "model at index %d missing required 'name' field", i)
		}
		if seen[m.ID] {
			return nil, Errorf(path, "duplicate model %q", m.ID)
		}
		seen[m.ID] = true
		if m.Kind == "" {
			models[i].Kind = kind
		} else if m.Kind != types.KindText && m.Kind != types.KindImage {
			return nil, Errorf(path, "model %q has unknown kind %q", m.ID, m.Kind)
		}
		models[i].Path = os.ExpandEnv(m.Path)
		models[i].Options = ExpandOptions(m.Options)
	}
	return models, nil
}
