package room

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arena/internal/config"
)

// Preset overrides the default rules for one named room. Zero fields inherit
// the server defaults.
//
// Precondition: Name must be non-empty after loading.
type Preset struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Capacity        int    `yaml:"capacity"`
	StartingHP      int    `yaml:"starting_hp"`
	StartingDefense *int   `yaml:"starting_defense"`
}

// Apply layers p over base.
//
// Postcondition: Mode is always base.Mode; a room never changes protocol.
func (p *Preset) Apply(base Rules) Rules {
	out := base
	if p.Capacity > 0 {
		out.Capacity = p.Capacity
	}
	if p.StartingHP > 0 {
		out.StartingHP = p.StartingHP
	}
	if p.StartingDefense != nil {
		out.StartingDefense = *p.StartingDefense
	}
	return out
}

// LoadPresets reads all .yaml files in dir and parses each as a Preset.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed presets (may be empty slice) or a non-nil error.
func LoadPresets(dir string) ([]*Preset, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	presets := make([]*Preset, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing room preset %s: %w", path, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("room preset %s: name must not be empty", path)
		}
		presets = append(presets, &p)
	}
	return presets, nil
}

// ResolvePresets applies every preset over base and validates the result.
//
// Postcondition: Returns rules keyed by room name, or an error naming every
// duplicate or invalid preset.
func ResolvePresets(presets []*Preset, base Rules) (map[string]Rules, error) {
	out := make(map[string]Rules, len(presets))
	var errs []string
	for _, p := range presets {
		if _, dup := out[p.Name]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicate preset", p.Name))
			continue
		}
		rules := p.Apply(base)
		if err := config.ValidateCapacity(rules.Capacity, string(rules.Mode)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name, err))
			continue
		}
		if rules.StartingHP < 1 {
			errs = append(errs, fmt.Sprintf("%s: starting_hp must be >= 1, got %d", p.Name, rules.StartingHP))
			continue
		}
		if rules.StartingDefense < 0 {
			errs = append(errs, fmt.Sprintf("%s: starting_defense must be >= 0, got %d", p.Name, rules.StartingDefense))
			continue
		}
		out[p.Name] = rules
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid room presets: %s", strings.Join(errs, "; "))
	}
	return out, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
