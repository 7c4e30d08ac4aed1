package query

import (
	"math"

	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/unit"
)

// LineOfSight keeps the candidates observer can see, casting one ray each.
func (t *Targeter) LineOfSight(observer ecs.Entity, cands []ecs.Entity) []ecs.Entity {
	from, ok := t.pos(observer)
	if !ok {
		return nil
	}
	if t.sight == nil {
		return append([]ecs.Entity(nil), cands...)
	}
	def, _ := t.Def(observer)
	out := make([]ecs.Entity, 0, len(cands))
	for _, c := range cands {
		to, ok := t.pos(c)
		if !ok {
			continue
		}
		if t.sight.HasLineOfSight(from, to, def, observer) {
			out = append(out, c)
		}
	}
	return out
}

type sectorTarget struct {
	id   ecs.Entity
	dist float64
}

// LineOfSightBatched groups candidates into angular sectors around observer and
// casts one ray per populated sector, toward its farthest member. On a blocked
// ray the visible distance is found by bisection down to RayStep, and members
// no farther than that are kept. The result is in input order.
func (t *Targeter) LineOfSightBatched(observer ecs.Entity, cands []ecs.Entity) []ecs.Entity {
	from, ok := t.pos(observer)
	if !ok {
		return nil
	}
	if t.sight == nil {
		return append([]ecs.Entity(nil), cands...)
	}
	def, _ := t.Def(observer)
	sectors := max(t.Sectors, 1)
	width := 2 * math.Pi / float64(sectors)

	buckets := make([][]sectorTarget, sectors)
	for _, c := range cands {
		to, ok := t.pos(c)
		if !ok {
			continue
		}
		i := int(from.Angle(to) / width)
		if i >= sectors {
			i = sectors - 1
		}
		buckets[i] = append(buckets[i], sectorTarget{id: c, dist: from.Dist(to)})
	}

	visible := make(map[ecs.Entity]bool, len(cands))
	for _, b := range buckets {
		if len(b) == 0 {
			continue
		}
		far := b[0]
		for _, s := range b[1:] {
			if s.dist > far.dist || (s.dist == far.dist && s.id < far.id) {
				far = s
			}
		}
		farPos, _ := t.pos(far.id)
		reach := far.dist
		if !t.sight.HasLineOfSight(from, farPos, def, observer) {
			reach = t.visibleDistance(from, farPos.Sub(from).Norm(), far.dist, def, observer)
		}
		for _, s := range b {
			if s.dist <= reach {
				visible[s.id] = true
			}
		}
	}

	out := make([]ecs.Entity, 0, len(visible))
	for _, c := range cands {
		if visible[c] {
			out = append(out, c)
		}
	}
	return out
}

// visibleDistance bisects the clear length of a ray known to be blocked at hi.
func (t *Targeter) visibleDistance(from, dir geom.Vec2, hi float64, def *unit.Def, viewer ecs.Entity) float64 {
	step := t.RayStep
	if step <= 0 {
		step = DefaultRayStep
	}
	lo := 0.0
	for hi-lo > step {
		mid := (lo + hi) / 2
		if t.sight.HasLineOfSight(from, from.Add(dir.Scale(mid)), def, viewer) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
