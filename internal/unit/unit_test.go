package unit

import (
	"errors"
	"math"
	"testing"

	"battlecore/internal/ecs"
)

func TestEnumsAreStable(t *testing.T) {
	tb := Enums()
	want := map[string]int{"neutral": 0, "player": 1, "enemy": 2}
	for _, e := range tb.Team {
		if want[e.Name] != e.Value {
			t.Fatalf("team %s = %d", e.Name, e.Value)
		}
	}
	if len(tb.DeathState) != 3 || tb.DeathState[int(Dying)].Name != "dying" {
		t.Fatalf("death states %v", tb.DeathState)
	}
	if tb.Phase[int(PhaseCombat)].Name != PhaseCombat.String() {
		t.Fatalf("phase table out of sync: %v", tb.Phase)
	}
}

func TestParseTeam(t *testing.T) {
	got, err := ParseTeam(" Enemy ")
	if err != nil || got != TeamEnemy {
		t.Fatalf("got %v %v", got, err)
	}
	if _, err := ParseTeam("orange"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStealthEffective(t *testing.T) {
	s := &Stealth{Base: 1, Terrain: 0.5, HideBonus: 2}
	if s.Effective() != 1.5 {
		t.Fatalf("got %v", s.Effective())
	}
	s.Hiding = true
	if s.Effective() != 3.5 {
		t.Fatalf("got %v", s.Effective())
	}
}

func TestIsAlive(t *testing.T) {
	s := ecs.NewStore()
	e := s.CreateEntity()
	if IsAlive(s, e) {
		t.Fatal("no health means not alive")
	}
	_ = HealthKey.Set(s, e, &Health{Current: 5, Max: 10})
	if !IsAlive(s, e) {
		t.Fatal("missing death state should count as alive")
	}
	_ = DeathKey.Set(s, e, &Death{State: Dying})
	if IsAlive(s, e) {
		t.Fatal("dying unit reported alive")
	}
}

func TestAurasPutReplaces(t *testing.T) {
	var a Auras
	a.Put(Aura{Name: "burn", Until: 1})
	a.Put(Aura{Name: "slow", Until: 2})
	a.Put(Aura{Name: "burn", Until: 3})
	if len(a.List) != 2 || a.List[0].Until != 3 {
		t.Fatalf("got %+v", a.List)
	}
	if !a.Drop("burn") || a.Has("burn") || a.Drop("burn") {
		t.Fatal("drop failed")
	}
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog([]Def{{Name: "archer", MaxHealth: 10}, {Name: "knight", MaxHealth: 20}})
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := c.UnitTypeDef("knight"); !ok || d.MaxHealth != 20 {
		t.Fatalf("got %+v", d)
	}
	if _, err := c.Lookup("dragon"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("got %v", err)
	}
	if _, err := NewCatalog([]Def{{Name: "a", MaxHealth: 1}, {Name: "a", MaxHealth: 1}}); err == nil {
		t.Fatal("duplicate accepted")
	}
}

func TestCatalogRejectsUnboundedRadii(t *testing.T) {
	for _, d := range []Def{
		{Name: "seer", MaxHealth: 1, Sight: math.Inf(1)},
		{Name: "lancer", MaxHealth: 1, Range: -1},
		{Name: "blur", MaxHealth: 1, Speed: math.NaN()},
	} {
		if _, err := NewCatalog([]Def{d}); err == nil {
			t.Fatalf("%s accepted", d.Name)
		}
	}
}

func TestPhaseConstantsAndCombatComponentCoexist(t *testing.T) {
	p, err := ParsePhase("combat")
	if err != nil || p != PhaseCombat {
		t.Fatalf("got %v %v", p, err)
	}
	c := &Combat{Interval: 1}
	c.Trigger(2)
	if c.Ready(2.5) || !c.Ready(3) {
		t.Fatalf("next attack at %v", c.NextAttack)
	}
}
