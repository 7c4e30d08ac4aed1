package unit

import (
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
)

// Component records. Mutable records are stored by pointer and updated in place;
// callers look them up every tick and never keep them.

type Position struct {
	geom.Vec2
}

type Health struct {
	Current float64
	Max     float64
}

// Fraction is Current/Max, or 0 for a zero Max.
func (h *Health) Fraction() float64 {
	if h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}

type Combat struct {
	Damage   float64
	Range    float64
	Interval float64
	CastTime float64
	// NextAttack is the earliest sim time the next swing may start.
	NextAttack float64
	// Casting is set for the duration of a cast; CastSeq identifies the current one.
	Casting bool
	CastSeq uint64
}

func (c *Combat) Ready(now float64) bool { return now >= c.NextAttack }

func (c *Combat) Trigger(now float64) { c.NextAttack = now + c.Interval }

type Death struct {
	State DeathState
	Since float64
}

type UnitType struct {
	Name string
}

type Stealth struct {
	Base    float64
	Terrain float64
	Hiding  bool
	// HideBonus is added while Hiding.
	HideBonus float64
}

// Effective is the value an observer's awareness is compared against.
func (s *Stealth) Effective() float64 {
	v := s.Base + s.Terrain
	if s.Hiding {
		v += s.HideBonus
	}
	return v
}

type Movement struct {
	Speed    float64
	Dest     geom.Vec2
	HasDest  bool
	Anchored bool
}

// Steer sets the destination for this tick.
func (m *Movement) Steer(to geom.Vec2) {
	m.Dest = to
	m.HasDest = true
}

func (m *Movement) Stop() { m.HasDest = false }

type Aura struct {
	Name   string
	Source ecs.Entity
	Until  float64
}

// Auras holds active auras in the order they were applied.
type Auras struct {
	List []Aura
}

func (a *Auras) Has(name string) bool {
	for _, x := range a.List {
		if x.Name == name {
			return true
		}
	}
	return false
}

func (a *Auras) Put(x Aura) {
	for i := range a.List {
		if a.List[i].Name == x.Name {
			a.List[i] = x
			return
		}
	}
	a.List = append(a.List, x)
}

func (a *Auras) Drop(name string) bool {
	for i, x := range a.List {
		if x.Name == name {
			a.List = append(a.List[:i], a.List[i+1:]...)
			return true
		}
	}
	return false
}

type Construction struct {
	Duration float64
	Progress float64
}

func (c *Construction) Done() bool { return c.Progress >= c.Duration }

var (
	PositionKey     = ecs.NewKey[*Position]("position")
	TeamKey         = ecs.NewKey[Team]("team")
	HealthKey       = ecs.NewKey[*Health]("health")
	CombatKey       = ecs.NewKey[*Combat]("combat")
	DeathKey        = ecs.NewKey[*Death]("deathState")
	UnitTypeKey     = ecs.NewKey[UnitType]("unitType")
	StealthKey      = ecs.NewKey[*Stealth]("stealth")
	MovementKey     = ecs.NewKey[*Movement]("movement")
	AurasKey        = ecs.NewKey[*Auras]("auras")
	ConstructionKey = ecs.NewKey[*Construction]("construction")
)

// IsAlive reports positive health and an alive death state. Entities without a
// death state count as alive.
func IsAlive(s *ecs.Store, e ecs.Entity) bool {
	h, ok := HealthKey.Get(s, e)
	if !ok || h.Current <= 0 {
		return false
	}
	if d, ok := DeathKey.Get(s, e); ok && d.State != Alive {
		return false
	}
	return true
}
