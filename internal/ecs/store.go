package ecs

import (
	"errors"
	"fmt"
	"sort"
)

// Entity is an opaque identifier. Zero is never issued.
type Entity uint32

// Nil is the zero entity.
const Nil Entity = 0

// ComponentType names a component table.
type ComponentType string

var (
	ErrDuplicateComponent = errors.New("ecs: duplicate component")
	ErrNoEntity           = errors.New("ecs: no such entity")
)

// Handle pins an entity id to one of its lives. Ids are recycled, handles are not.
type Handle struct {
	ID  Entity
	Gen uint32
}

// Store owns entity identity and per-type component tables.
type Store struct {
	next      Entity
	free      []Entity // ascending
	alive     map[Entity]struct{}
	gens      map[Entity]uint32
	tables    map[ComponentType]map[Entity]any
	onDestroy []func(Entity)
}

func NewStore() *Store {
	return &Store{
		alive:  map[Entity]struct{}{},
		gens:   map[Entity]uint32{},
		tables: map[ComponentType]map[Entity]any{},
	}
}

// OnDestroy registers a hook that runs before an entity's components are released.
func (s *Store) OnDestroy(fn func(Entity)) {
	if fn != nil {
		s.onDestroy = append(s.onDestroy, fn)
	}
}

// CreateEntity issues the smallest recycled id, or a fresh one.
func (s *Store) CreateEntity() Entity {
	var e Entity
	if len(s.free) > 0 {
		e = s.free[0]
		s.free = s.free[1:]
	} else {
		s.next++
		e = s.next
	}
	s.alive[e] = struct{}{}
	s.gens[e]++
	return e
}

func (s *Store) Alive(e Entity) bool {
	_, ok := s.alive[e]
	return ok
}

// Handle returns the current (id, generation) pair. Dead ids yield a zero handle.
func (s *Store) Handle(e Entity) Handle {
	if !s.Alive(e) {
		return Handle{}
	}
	return Handle{ID: e, Gen: s.gens[e]}
}

// Valid reports whether h still refers to the same life of its entity.
func (s *Store) Valid(h Handle) bool {
	return h.ID != Nil && s.Alive(h.ID) && s.gens[h.ID] == h.Gen
}

// DestroyEntity runs the destroy hooks, drops every component and recycles the id.
func (s *Store) DestroyEntity(e Entity) error {
	if !s.Alive(e) {
		return fmt.Errorf("destroy %d: %w", e, ErrNoEntity)
	}
	for _, fn := range s.onDestroy {
		fn(e)
	}
	for _, table := range s.tables {
		delete(table, e)
	}
	delete(s.alive, e)
	i := sort.Search(len(s.free), func(i int) bool { return s.free[i] >= e })
	s.free = append(s.free, 0)
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = e
	return nil
}

// AddComponent attaches data, refusing to overwrite an existing component.
func (s *Store) AddComponent(e Entity, t ComponentType, data any) error {
	if !s.Alive(e) {
		return fmt.Errorf("add %s to %d: %w", t, e, ErrNoEntity)
	}
	table := s.table(t)
	if _, ok := table[e]; ok {
		return fmt.Errorf("add %s to %d: %w", t, e, ErrDuplicateComponent)
	}
	table[e] = data
	return nil
}

// SetComponent attaches or replaces data.
func (s *Store) SetComponent(e Entity, t ComponentType, data any) error {
	if !s.Alive(e) {
		return fmt.Errorf("set %s on %d: %w", t, e, ErrNoEntity)
	}
	s.table(t)[e] = data
	return nil
}

func (s *Store) GetComponent(e Entity, t ComponentType) (any, bool) {
	table, ok := s.tables[t]
	if !ok {
		return nil, false
	}
	v, ok := table[e]
	return v, ok
}

func (s *Store) HasComponent(e Entity, t ComponentType) bool {
	_, ok := s.GetComponent(e, t)
	return ok
}

// RemoveComponent reports whether a component was present.
func (s *Store) RemoveComponent(e Entity, t ComponentType) bool {
	table, ok := s.tables[t]
	if !ok {
		return false
	}
	if _, ok := table[e]; !ok {
		return false
	}
	delete(table, e)
	return true
}

// EntitiesWith lists entities holding every listed type, in ascending id order.
// With no types it lists every live entity.
func (s *Store) EntitiesWith(types ...ComponentType) []Entity {
	if len(types) == 0 {
		out := make([]Entity, 0, len(s.alive))
		for e := range s.alive {
			out = append(out, e)
		}
		return SortEntities(out)
	}
	smallest := -1
	for i, t := range types {
		table, ok := s.tables[t]
		if !ok || len(table) == 0 {
			return nil
		}
		if smallest < 0 || len(table) < len(s.tables[types[smallest]]) {
			smallest = i
		}
	}
	out := make([]Entity, 0, len(s.tables[types[smallest]]))
	for e := range s.tables[types[smallest]] {
		match := true
		for _, t := range types {
			if _, ok := s.tables[t][e]; !ok {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return SortEntities(out)
}

// Len returns the number of live entities.
func (s *Store) Len() int { return len(s.alive) }

func (s *Store) table(t ComponentType) map[Entity]any {
	table, ok := s.tables[t]
	if !ok {
		table = map[Entity]any{}
		s.tables[t] = table
	}
	return table
}
