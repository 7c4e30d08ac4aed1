package geom

import "math"

type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Len() float64    { return math.Hypot(a.X, a.Y) }
func (a Vec2) Norm() Vec2 {
	l := a.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{a.X / l, a.Y / l}
}
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Dist2 is the squared distance; range checks compare against r*r.
func (a Vec2) Dist2(b Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func (a Vec2) Dist(b Vec2) float64 { return math.Sqrt(a.Dist2(b)) }

// Within reports whether b lies within r of a, inclusive.
func (a Vec2) Within(b Vec2, r float64) bool { return a.Dist2(b) <= r*r }

// Angle returns the heading from a to b in [0, 2π).
func (a Vec2) Angle(b Vec2) float64 {
	ang := math.Atan2(b.Y-a.Y, b.X-a.X)
	if ang < 0 {
		ang += 2 * math.Pi
	}
	return ang
}

// Toward moves a at most step units toward b without overshooting.
func (a Vec2) Toward(b Vec2, step float64) Vec2 {
	diff := b.Sub(a)
	d := diff.Len()
	if d <= step || d == 0 {
		return b
	}
	return a.Add(diff.Scale(step / d))
}
