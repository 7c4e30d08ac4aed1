package spatial

import (
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/unit"
)

type Segment struct {
	A geom.Vec2 `yaml:"a" json:"a"`
	B geom.Vec2 `yaml:"b" json:"b"`
}

// Walls blocks sight along any segment. Flying viewers ignore them, and
// nothing blocks beyond a viewer's sight radius check done by the caller.
type Walls struct {
	Segments []Segment
}

func (w *Walls) HasLineOfSight(from, to geom.Vec2, def *unit.Def, _ ecs.Entity) bool {
	if def != nil && def.Flying {
		return true
	}
	for _, s := range w.Segments {
		if intersects(from, to, s.A, s.B) {
			return false
		}
	}
	return true
}

func cross(o, a, b geom.Vec2) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(p, q, r geom.Vec2) bool {
	return min(p.X, r.X) <= q.X && q.X <= max(p.X, r.X) &&
		min(p.Y, r.Y) <= q.Y && q.Y <= max(p.Y, r.Y)
}

// intersects reports whether segments p1p2 and q1q2 share a point.
func intersects(p1, p2, q1, q2 geom.Vec2) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, p1, q2):
		return true
	case d2 == 0 && onSegment(q1, p2, q2):
		return true
	case d3 == 0 && onSegment(p1, q1, p2):
		return true
	case d4 == 0 && onSegment(p1, q2, p2):
		return true
	}
	return false
}
