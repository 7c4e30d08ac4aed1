package unit

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnknownType = errors.New("unit: unknown type")

// Def is the static definition shared by every unit of a type.
type Def struct {
	Name string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Tree string `yaml:"tree" json:"tree" jsonschema:"description=Behavior tree evaluated for this type"`
	Note string `yaml:"note,omitempty" json:"note,omitempty"`

	MaxHealth      float64 `yaml:"max_health" json:"max_health" jsonschema:"minimum=0,exclusiveMinimum=true"`
	Damage         float64 `yaml:"damage" json:"damage"`
	Range          float64 `yaml:"range" json:"range"`
	AttackInterval float64 `yaml:"attack_interval" json:"attack_interval"`
	CastTime       float64 `yaml:"cast_time,omitempty" json:"cast_time,omitempty"`
	Speed          float64 `yaml:"speed" json:"speed"`

	Sight     float64 `yaml:"sight" json:"sight" jsonschema:"description=Radius used for nearby-unit queries"`
	Awareness float64 `yaml:"awareness" json:"awareness"`
	Stealth   float64 `yaml:"stealth,omitempty" json:"stealth,omitempty"`
	HideBonus float64 `yaml:"hide_bonus,omitempty" json:"hide_bonus,omitempty"`
	// Flying units see over walls.
	Flying bool `yaml:"flying,omitempty" json:"flying,omitempty"`

	HealAmount   float64 `yaml:"heal_amount,omitempty" json:"heal_amount,omitempty"`
	HealTicks    int     `yaml:"heal_ticks,omitempty" json:"heal_ticks,omitempty"`
	HealInterval float64 `yaml:"heal_interval,omitempty" json:"heal_interval,omitempty"`

	AuraDPS      float64 `yaml:"aura_dps,omitempty" json:"aura_dps,omitempty"`
	AuraRadius   float64 `yaml:"aura_radius,omitempty" json:"aura_radius,omitempty"`
	AuraDuration float64 `yaml:"aura_duration,omitempty" json:"aura_duration,omitempty"`

	BuildTime    float64 `yaml:"build_time,omitempty" json:"build_time,omitempty"`
	RetreatBelow float64 `yaml:"retreat_below,omitempty" json:"retreat_below,omitempty" jsonschema:"minimum=0,maximum=1"`
	CorpseTime   float64 `yaml:"corpse_time,omitempty" json:"corpse_time,omitempty"`
}

// Catalog indexes definitions by name.
type Catalog struct {
	defs map[string]*Def
}

func NewCatalog(defs []Def) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Def, len(defs))}
	for i := range defs {
		d := defs[i]
		if d.Name == "" {
			return nil, fmt.Errorf("unit def %d: empty name", i)
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("unit def %q: duplicate", d.Name)
		}
		if d.MaxHealth <= 0 {
			return nil, fmt.Errorf("unit def %q: max_health must be positive", d.Name)
		}
		for _, f := range []struct {
			name string
			v    float64
		}{
			{"range", d.Range},
			{"speed", d.Speed},
			{"sight", d.Sight},
			{"aura_radius", d.AuraRadius},
		} {
			if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return nil, fmt.Errorf("unit def %q: %s must be finite and non-negative, got %v", d.Name, f.name, f.v)
			}
		}
		c.defs[d.Name] = &d
	}
	return c, nil
}

// UnitTypeDef looks up the static definition for a unitType component.
func (c *Catalog) UnitTypeDef(name string) (*Def, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Lookup is UnitTypeDef with an error for unknown names.
func (c *Catalog) Lookup(name string) (*Def, error) {
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return d, nil
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.defs))
	for n := range c.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
