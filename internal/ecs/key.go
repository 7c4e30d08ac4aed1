package ecs

import "fmt"

// Key gives typed access to one component table.
type Key[T any] struct {
	name ComponentType
}

func NewKey[T any](name string) Key[T] {
	return Key[T]{name: ComponentType(name)}
}

func (k Key[T]) Type() ComponentType { return k.name }

func (k Key[T]) Get(s *Store, e Entity) (T, bool) {
	var zero T
	v, ok := s.GetComponent(e, k.name)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Must panics when the component is missing; only for setup code and tests.
func (k Key[T]) Must(s *Store, e Entity) T {
	v, ok := k.Get(s, e)
	if !ok {
		panic(fmt.Sprintf("ecs: entity %d has no %s", e, k.name))
	}
	return v
}

func (k Key[T]) Has(s *Store, e Entity) bool {
	_, ok := k.Get(s, e)
	return ok
}

func (k Key[T]) Add(s *Store, e Entity, v T) error { return s.AddComponent(e, k.name, v) }

func (k Key[T]) Set(s *Store, e Entity, v T) error { return s.SetComponent(e, k.name, v) }

func (k Key[T]) Remove(s *Store, e Entity) bool { return s.RemoveComponent(e, k.name) }
