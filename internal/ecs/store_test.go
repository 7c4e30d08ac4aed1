package ecs

import (
	"errors"
	"slices"
	"testing"
)

type health struct{ HP int }

var healthKey = NewKey[*health]("health")
var tagKey = NewKey[bool]("tag")

func TestGetReturnsAddedComponent(t *testing.T) {
	s := NewStore()
	e := s.CreateEntity()
	h := &health{HP: 10}
	if err := healthKey.Add(s, e, h); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, ok := healthKey.Get(s, e)
	if !ok || got != h {
		t.Fatalf("expected the same pointer back, got %v ok=%v", got, ok)
	}
}

func TestAddDuplicateFails(t *testing.T) {
	s := NewStore()
	e := s.CreateEntity()
	if err := healthKey.Add(s, e, &health{}); err != nil {
		t.Fatal(err)
	}
	err := healthKey.Add(s, e, &health{})
	if !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("expected ErrDuplicateComponent, got %v", err)
	}
	if err := healthKey.Set(s, e, &health{HP: 3}); err != nil {
		t.Fatalf("set should upsert: %v", err)
	}
	if healthKey.Must(s, e).HP != 3 {
		t.Fatalf("upsert did not replace value")
	}
}

func TestAddToDeadEntityFails(t *testing.T) {
	s := NewStore()
	e := s.CreateEntity()
	if err := s.DestroyEntity(e); err != nil {
		t.Fatal(err)
	}
	if err := tagKey.Add(s, e, true); !errors.Is(err, ErrNoEntity) {
		t.Fatalf("expected ErrNoEntity, got %v", err)
	}
	if err := s.DestroyEntity(e); !errors.Is(err, ErrNoEntity) {
		t.Fatalf("double destroy: expected ErrNoEntity, got %v", err)
	}
}

func TestRemoveComponent(t *testing.T) {
	s := NewStore()
	e := s.CreateEntity()
	_ = tagKey.Add(s, e, true)
	if !tagKey.Remove(s, e) {
		t.Fatal("expected remove to report presence")
	}
	if tagKey.Has(s, e) {
		t.Fatal("component still present")
	}
	if tagKey.Remove(s, e) {
		t.Fatal("second remove should report absence")
	}
}

func TestEntitiesWithAscendingOrder(t *testing.T) {
	s := NewStore()
	var ids []Entity
	for i := 0; i < 50; i++ {
		ids = append(ids, s.CreateEntity())
	}
	// attach in reverse so insertion order differs from id order
	for i := len(ids) - 1; i >= 0; i-- {
		_ = healthKey.Add(s, ids[i], &health{HP: i})
		if i%2 == 0 {
			_ = tagKey.Add(s, ids[i], true)
		}
	}
	got := s.EntitiesWith(healthKey.Type(), tagKey.Type())
	if !slices.IsSorted(got) {
		t.Fatalf("not sorted: %v", got)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 matches, got %d", len(got))
	}
	again := s.EntitiesWith(tagKey.Type(), healthKey.Type())
	if !slices.Equal(got, again) {
		t.Fatalf("repeated query differs: %v vs %v", got, again)
	}
}

func TestEntitiesWithIdenticalAcrossStores(t *testing.T) {
	build := func() []Entity {
		s := NewStore()
		for i := 0; i < 20; i++ {
			e := s.CreateEntity()
			_ = healthKey.Add(s, e, &health{HP: i})
		}
		for _, e := range []Entity{3, 7, 11} {
			_ = s.DestroyEntity(e)
		}
		for i := 0; i < 2; i++ {
			e := s.CreateEntity()
			_ = healthKey.Add(s, e, &health{})
		}
		return s.EntitiesWith(healthKey.Type())
	}
	a, b := build(), build()
	if !slices.Equal(a, b) {
		t.Fatalf("stores diverged: %v vs %v", a, b)
	}
}

func TestRecycledIDGetsNewGeneration(t *testing.T) {
	s := NewStore()
	a := s.CreateEntity()
	b := s.CreateEntity()
	h := s.Handle(b)
	_ = healthKey.Add(s, b, &health{HP: 1})
	if err := s.DestroyEntity(b); err != nil {
		t.Fatal(err)
	}
	if err := s.DestroyEntity(a); err != nil {
		t.Fatal(err)
	}
	first := s.CreateEntity()
	if first != a {
		t.Fatalf("expected smallest recycled id %d, got %d", a, first)
	}
	again := s.CreateEntity()
	if again != b {
		t.Fatalf("expected recycled id %d, got %d", b, again)
	}
	if s.Valid(h) {
		t.Fatal("stale handle validated against recycled id")
	}
	if healthKey.Has(s, again) {
		t.Fatal("recycled id inherited a component")
	}
}

func TestDestroyHooksSeeComponents(t *testing.T) {
	s := NewStore()
	e := s.CreateEntity()
	_ = healthKey.Add(s, e, &health{HP: 42})
	var seen int
	s.OnDestroy(func(id Entity) {
		if h, ok := healthKey.Get(s, id); ok {
			seen = h.HP
		}
	})
	if err := s.DestroyEntity(e); err != nil {
		t.Fatal(err)
	}
	if seen != 42 {
		t.Fatalf("hook saw %d", seen)
	}
	if len(s.EntitiesWith()) != 0 {
		t.Fatal("entity still listed")
	}
}

func TestSortByKeyFallsBackToID(t *testing.T) {
	type row struct {
		id   Entity
		rank int
	}
	rows := []row{{5, 1}, {2, 0}, {9, 1}, {1, 1}}
	SortByKey(rows, func(r row) Entity { return r.id }, func(a, b row) int { return a.rank - b.rank })
	want := []Entity{2, 1, 5, 9}
	for i, r := range rows {
		if r.id != want[i] {
			t.Fatalf("position %d: want %d got %d", i, want[i], r.id)
		}
	}
}
