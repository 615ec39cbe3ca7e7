package vocab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedConfig drives the builtin vocabulary and the category exemplar sets
// used when a freshly registered type gets a category assigned by embedding
// similarity. Operators override it with a YAML file; the compiled-in
// defaults below are the shipped vocabulary.
type SeedConfig struct {
	Builtins   []SeedType          `yaml:"builtins"`
	Categories map[string][]string `yaml:"categories"`
}

type SeedType struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

func DefaultSeeds() SeedConfig {
	return SeedConfig{
		Builtins: []SeedType{
			{Name: "SUPPORTS", Category: "evidential"},
			{Name: "CONTRADICTS", Category: "evidential"},
			{Name: "CAUSES", Category: "causal"},
			{Name: "PREVENTS", Category: "causal"},
			{Name: "ENABLES", Category: "causal"},
			{Name: "PART_OF", Category: "structural"},
			{Name: "CONTAINS", Category: "structural"},
			{Name: "IS_A", Category: "structural"},
			{Name: "PRECEDES", Category: "temporal"},
			{Name: "FOLLOWS", Category: "temporal"},
			{Name: "RELATES_TO", Category: "associative"},
			{Name: "SIMILAR_TO", Category: "associative"},
		},
		Categories: map[string][]string{
			"evidential":  {"SUPPORTS", "CONTRADICTS"},
			"causal":      {"CAUSES", "PREVENTS", "ENABLES"},
			"structural":  {"PART_OF", "CONTAINS", "IS_A"},
			"temporal":    {"PRECEDES", "FOLLOWS"},
			"associative": {"RELATES_TO", "SIMILAR_TO"},
		},
	}
}

// LoadSeeds reads a seed file when path is non-empty, otherwise returns the
// defaults. A partial file inherits the defaults for the sections it omits.
func LoadSeeds(path string) (SeedConfig, error) {
	out := DefaultSeeds()
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedConfig{}, fmt.Errorf("read vocabulary seeds %s: %w", path, err)
	}
	var file SeedConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return SeedConfig{}, fmt.Errorf("parse vocabulary seeds %s: %w", path, err)
	}
	if len(file.Builtins) > 0 {
		out.Builtins = file.Builtins
	}
	if len(file.Categories) > 0 {
		out.Categories = file.Categories
	}
	return out, nil
}
