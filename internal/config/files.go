package config

import (
	"fmt"

	"battlecore/internal/bt"
	"battlecore/internal/geom"
	"battlecore/internal/spatial"
	"battlecore/internal/unit"
)

type UnitsFile struct {
	Units []unit.Def `yaml:"units" json:"units"`
}

type TreesFile struct {
	Trees []bt.Spec `yaml:"trees" json:"trees"`
}

type ScenarioFile struct {
	Name string `yaml:"name" json:"name"`
	Note string `yaml:"note,omitempty" json:"note,omitempty"`
	Seed int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	// Dt is the fixed tick length in seconds. Zero fields take the defaults below.
	Dt            float64           `yaml:"dt,omitempty" json:"dt,omitempty" jsonschema:"minimum=0"`
	PlacementTime float64           `yaml:"placement_time,omitempty" json:"placement_time,omitempty" jsonschema:"minimum=0"`
	TimeLimit     float64           `yaml:"time_limit,omitempty" json:"time_limit,omitempty" jsonschema:"minimum=0"`
	CellSize      float64           `yaml:"cell_size,omitempty" json:"cell_size,omitempty"`
	Walls         []spatial.Segment `yaml:"walls,omitempty" json:"walls,omitempty"`
	Spawns        []Spawn           `yaml:"spawns" json:"spawns" jsonschema:"minItems=1"`
}

// Spawn places Count units of Type around At.
type Spawn struct {
	Type  string    `yaml:"type" json:"type"`
	Team  string    `yaml:"team" json:"team" jsonschema:"enum=neutral,enum=player,enum=enemy"`
	At    geom.Vec2 `yaml:"at" json:"at"`
	Count int       `yaml:"count,omitempty" json:"count,omitempty" jsonschema:"minimum=0"`
	// Spread is the jitter radius for units after the first.
	Spread float64 `yaml:"spread,omitempty" json:"spread,omitempty"`
}

const (
	DefaultDt        = 0.1
	DefaultTimeLimit = 120.0
)

func (s *ScenarioFile) validate(cat *unit.Catalog) error {
	if s.Dt == 0 {
		s.Dt = DefaultDt
	}
	if s.TimeLimit == 0 {
		s.TimeLimit = DefaultTimeLimit
	}
	if s.Dt < 0 || s.TimeLimit < 0 || s.PlacementTime < 0 {
		return fmt.Errorf("%w: scenario %q: negative timing", ErrInvalid, s.Name)
	}
	if len(s.Spawns) == 0 {
		return fmt.Errorf("%w: scenario %q: no spawns", ErrInvalid, s.Name)
	}
	for i := range s.Spawns {
		sp := &s.Spawns[i]
		if _, err := cat.Lookup(sp.Type); err != nil {
			return fmt.Errorf("%w: spawn %d: %v", ErrInvalid, i, err)
		}
		if _, err := unit.ParseTeam(sp.Team); err != nil {
			return fmt.Errorf("%w: spawn %d: %v", ErrInvalid, i, err)
		}
		if sp.Count == 0 {
			sp.Count = 1
		}
		if sp.Count < 0 {
			return fmt.Errorf("%w: spawn %d: negative count", ErrInvalid, i)
		}
	}
	return nil
}
