package bt

import (
	"sort"

	"battlecore/internal/ecs"
	"battlecore/internal/geom"
)

// Value is the closed set of kinds a blackboard slot may hold.
type Value interface {
	ecs.Entity | geom.Vec2 | float64 | bool
}

// Key names a typed blackboard slot. Declare keys once as package variables.
type Key[T Value] struct {
	name string
}

func NewKey[T Value](name string) Key[T] { return Key[T]{name: name} }

func (k Key[T]) Name() string { return k.name }

func (k Key[T]) Get(m *Map) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	v, ok := m.vals[k.name]
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

func (k Key[T]) Set(m *Map, v T) {
	if m.vals == nil {
		m.vals = map[string]any{}
	}
	m.vals[k.name] = v
}

func (k Key[T]) Delete(m *Map) {
	if m != nil {
		delete(m.vals, k.name)
	}
}

func (k Key[T]) Has(m *Map) bool {
	_, ok := k.Get(m)
	return ok
}

// Map is the blackboard and result payload type. The zero value is ready to use.
type Map struct {
	vals map[string]any
}

func NewMap() *Map { return &Map{vals: map[string]any{}} }

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.vals)
}

// Keys lists slot names in sorted order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.vals))
	for k := range m.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Map) Clear() {
	if m != nil {
		clear(m.vals)
	}
}

// Merge copies every slot of src into m, overwriting.
func (m *Map) Merge(src *Map) {
	if src == nil {
		return
	}
	if m.vals == nil {
		m.vals = make(map[string]any, len(src.vals))
	}
	for k, v := range src.vals {
		m.vals[k] = v
	}
}

// Snapshot returns a plain copy, for event payloads and debugging.
func (m *Map) Snapshot() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.vals {
		out[k] = v
	}
	return out
}
