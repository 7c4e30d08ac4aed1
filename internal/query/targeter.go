// Package query enumerates and ranks units for behaviors and abilities. Every
// result is ordered by ascending entity id unless a ranking says otherwise, and
// rankings always fall back to id.
package query

import (
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/unit"
)

// Spatial answers "who is near here". Results may come back in any order.
type Spatial interface {
	NearbyUnits(pos geom.Vec2, radius float64, exclude ecs.Entity) []ecs.Entity
}

// Sight answers whether from can see to, for a viewer of the given type.
type Sight interface {
	HasLineOfSight(from, to geom.Vec2, def *unit.Def, viewer ecs.Entity) bool
}

// UnitDefs resolves a unitType component to its static definition.
type UnitDefs interface {
	UnitTypeDef(name string) (*unit.Def, bool)
}

const (
	DefaultClusterRadius  = 3.0
	DefaultRayStep        = 0.25
	DefaultSectors        = 16
	DefaultBatchThreshold = 8
)

type Targeter struct {
	store   *ecs.Store
	spatial Spatial
	sight   Sight
	defs    UnitDefs

	ClusterRadius float64
	// RayStep is the precision of the visible-distance search on a blocked ray.
	RayStep float64
	Sectors int
	// BatchThreshold is the target count above which Visible batches rays by sector.
	BatchThreshold int
}

// New builds a targeter. A nil spatial falls back to scanning the store; a nil
// sight treats every line as clear.
func New(store *ecs.Store, spatial Spatial, sight Sight, defs UnitDefs) *Targeter {
	return &Targeter{
		store:          store,
		spatial:        spatial,
		sight:          sight,
		defs:           defs,
		ClusterRadius:  DefaultClusterRadius,
		RayStep:        DefaultRayStep,
		Sectors:        DefaultSectors,
		BatchThreshold: DefaultBatchThreshold,
	}
}

func (t *Targeter) Store() *ecs.Store { return t.store }

// Def returns e's static definition, if it has a known unit type.
func (t *Targeter) Def(e ecs.Entity) (*unit.Def, bool) {
	if t.defs == nil {
		return nil, false
	}
	ut, ok := unit.UnitTypeKey.Get(t.store, e)
	if !ok {
		return nil, false
	}
	return t.defs.UnitTypeDef(ut.Name)
}

func (t *Targeter) pos(e ecs.Entity) (geom.Vec2, bool) {
	p, ok := unit.PositionKey.Get(t.store, e)
	if !ok || p == nil {
		return geom.Vec2{}, false
	}
	return p.Vec2, true
}

// EnemiesInRange lists living units of another, non-neutral team within r of e.
func (t *Targeter) EnemiesInRange(e ecs.Entity, r float64) []ecs.Entity {
	return t.inRange(e, r, func(own, other unit.Team) bool {
		return other != own && other != unit.TeamNeutral
	})
}

// AlliesInRange lists living units of e's team within r of e, excluding e.
func (t *Targeter) AlliesInRange(e ecs.Entity, r float64) []ecs.Entity {
	return t.inRange(e, r, func(own, other unit.Team) bool { return other == own })
}

func (t *Targeter) inRange(e ecs.Entity, r float64, match func(own, other unit.Team) bool) []ecs.Entity {
	from, ok := t.pos(e)
	if !ok {
		return nil
	}
	own, ok := unit.TeamKey.Get(t.store, e)
	if !ok {
		return nil
	}
	var cands []ecs.Entity
	if t.spatial != nil {
		cands = t.spatial.NearbyUnits(from, r, e)
	} else {
		cands = t.store.EntitiesWith(unit.PositionKey.Type(), unit.TeamKey.Type(), unit.HealthKey.Type())
	}
	out := make([]ecs.Entity, 0, len(cands))
	for _, c := range cands {
		if c == e {
			continue
		}
		team, ok := unit.TeamKey.Get(t.store, c)
		if !ok || !match(own, team) {
			continue
		}
		if !unit.IsAlive(t.store, c) {
			continue
		}
		p, ok := t.pos(c)
		if !ok || !from.Within(p, r) {
			continue
		}
		out = append(out, c)
	}
	return ecs.SortEntities(out)
}

type ranked struct {
	id   ecs.Entity
	hp   float64
	dist float64
}

func (t *Targeter) rank(observer ecs.Entity, cands []ecs.Entity, usePercentage bool) []ranked {
	from, _ := t.pos(observer)
	out := make([]ranked, 0, len(cands))
	for _, c := range cands {
		h, ok := unit.HealthKey.Get(t.store, c)
		if !ok {
			continue
		}
		hp := h.Current
		if usePercentage {
			hp = h.Fraction()
		}
		var d float64
		if p, ok := t.pos(c); ok {
			d = from.Dist(p)
		}
		out = append(out, ranked{id: c, hp: hp, dist: d})
	}
	return out
}

// FindWeakest picks the candidate with the lowest health, then the shortest
// distance from observer, then the lowest id.
func (t *Targeter) FindWeakest(observer ecs.Entity, cands []ecs.Entity, usePercentage bool) (ecs.Entity, bool) {
	rs := t.rank(observer, cands, usePercentage)
	if len(rs) == 0 {
		return ecs.Nil, false
	}
	ecs.SortByKey(rs, func(r ranked) ecs.Entity { return r.id }, func(a, b ranked) int {
		if c := ecs.CompareFloat(a.hp, b.hp); c != 0 {
			return c
		}
		return ecs.CompareFloat(a.dist, b.dist)
	})
	return rs[0].id, true
}

// Nearest picks the closest candidate, ties to the lowest id.
func (t *Targeter) Nearest(observer ecs.Entity, cands []ecs.Entity) (ecs.Entity, bool) {
	rs := t.rank(observer, cands, false)
	if len(rs) == 0 {
		return ecs.Nil, false
	}
	ecs.SortByKey(rs, func(r ranked) ecs.Entity { return r.id }, func(a, b ranked) int {
		return ecs.CompareFloat(a.dist, b.dist)
	})
	return rs[0].id, true
}

// FindBestClusterPosition returns the candidate position with the most other
// candidates within ClusterRadius. Centers are tried in ascending id order and
// a later center replaces the best on an equal count. size counts the center;
// ok is false when no center reaches minCluster.
func (t *Targeter) FindBestClusterPosition(cands []ecs.Entity, minCluster int) (pos geom.Vec2, size int, ok bool) {
	ids := ecs.SortEntities(append([]ecs.Entity(nil), cands...))
	type point struct {
		id ecs.Entity
		p  geom.Vec2
	}
	pts := make([]point, 0, len(ids))
	for _, id := range ids {
		if p, ok := t.pos(id); ok {
			pts = append(pts, point{id, p})
		}
	}
	best := -1
	for _, c := range pts {
		n := 1
		for _, o := range pts {
			if o.id != c.id && c.p.Within(o.p, t.ClusterRadius) {
				n++
			}
		}
		// >= so the highest id wins a tie; replays must agree on which center that is.
		if n >= best {
			best, pos = n, c.p
		}
	}
	if best < 0 || best < minCluster {
		return geom.Vec2{}, max(best, 0), false
	}
	return pos, best, true
}

// StealthVisible reports whether observer's awareness beats target's stealth.
// Targets without a stealth component are always visible.
func (t *Targeter) StealthVisible(observer, target ecs.Entity) bool {
	s, ok := unit.StealthKey.Get(t.store, target)
	if !ok || s == nil {
		return true
	}
	var awareness float64
	if d, ok := t.Def(observer); ok {
		awareness = d.Awareness
	}
	return s.Effective() <= awareness
}

// FilterStealth keeps the candidates observer can perceive, in input order.
func (t *Targeter) FilterStealth(observer ecs.Entity, cands []ecs.Entity) []ecs.Entity {
	out := cands[:0:0]
	for _, c := range cands {
		if t.StealthVisible(observer, c) {
			out = append(out, c)
		}
	}
	return out
}

// Visible filters by stealth and line of sight, batching rays by sector when
// there are many candidates.
func (t *Targeter) Visible(observer ecs.Entity, cands []ecs.Entity) []ecs.Entity {
	cands = t.FilterStealth(observer, cands)
	if len(cands) > t.BatchThreshold {
		return t.LineOfSightBatched(observer, cands)
	}
	return t.LineOfSight(observer, cands)
}

// VisibleEnemies is EnemiesInRange narrowed to what e can see.
func (t *Targeter) VisibleEnemies(e ecs.Entity, r float64) []ecs.Entity {
	return t.Visible(e, t.EnemiesInRange(e, r))
}
