package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"battlecore/internal/unit"
)

var ErrInvalid = errors.New("config: invalid")

// File names inside a config directory.
const (
	UnitsFileName    = "units.yaml"
	TreesFileName    = "trees.yaml"
	ScenarioFileName = "scenario.yaml"
)

// Bundle is everything a simulation needs, validated together.
type Bundle struct {
	Units    UnitsFile
	Trees    TreesFile
	Scenario ScenarioFile
	Catalog  *unit.Catalog
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadAll reads units, trees and the scenario from dir. An empty scenario path
// uses scenario.yaml in dir.
func LoadAll(dir, scenario string) (*Bundle, error) {
	var b Bundle
	if err := loadYAML(filepath.Join(dir, UnitsFileName), &b.Units); err != nil {
		return nil, err
	}
	if err := loadYAML(filepath.Join(dir, TreesFileName), &b.Trees); err != nil {
		return nil, err
	}
	if scenario == "" {
		scenario = filepath.Join(dir, ScenarioFileName)
	}
	if err := loadYAML(scenario, &b.Scenario); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks cross references and fills defaults. It also builds Catalog.
func (b *Bundle) Validate() error {
	cat, err := unit.NewCatalog(b.Units.Units)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	b.Catalog = cat

	trees := make(map[string]bool, len(b.Trees.Trees))
	for _, t := range b.Trees.Trees {
		if t.Name == "" {
			return fmt.Errorf("%w: tree without a name", ErrInvalid)
		}
		if trees[t.Name] {
			return fmt.Errorf("%w: duplicate tree %q", ErrInvalid, t.Name)
		}
		trees[t.Name] = true
	}
	for _, d := range b.Units.Units {
		if d.Tree != "" && !trees[d.Tree] {
			return fmt.Errorf("%w: unit %q uses unknown tree %q", ErrInvalid, d.Name, d.Tree)
		}
	}
	return b.Scenario.validate(cat)
}
