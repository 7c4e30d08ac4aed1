package combat_test

import (
	"math"
	"testing"

	"battlecore/internal/bt"
	"battlecore/internal/combat"
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/sim"
	"battlecore/internal/unit"
)

func leaf(name string) bt.NodeSpec { return bt.NodeSpec{Type: bt.TypeLeaf, Name: name} }

var trees = []bt.Spec{
	{
		Name: "fighter",
		Gate: combat.PredAlive,
		Root: bt.NodeSpec{Type: bt.TypeSelector, Children: []bt.NodeSpec{
			{Type: bt.TypeSequence, Children: []bt.NodeSpec{
				leaf(combat.LeafAcquireTarget),
				{Type: bt.TypeSelector, Children: []bt.NodeSpec{
					{Type: bt.TypeSequence, Children: []bt.NodeSpec{
						leaf(combat.LeafTargetInRange),
						leaf(combat.LeafAttack),
					}},
					leaf(combat.LeafMoveToTarget),
				}},
			}},
			leaf(combat.LeafIdle),
		}},
	},
	{
		Name: "coward",
		Root: bt.NodeSpec{Type: bt.TypeSelector, Children: []bt.NodeSpec{
			{Type: bt.TypeSequence, Children: []bt.NodeSpec{
				leaf(combat.LeafLowHealth),
				leaf(combat.LeafRetreat),
			}},
			leaf(combat.LeafIdle),
		}},
	},
	{
		Name: "builder",
		Gate: combat.PredPlacement,
		Root: leaf(combat.LeafBuild),
	},
	{
		Name: "sneak",
		Root: leaf(combat.LeafHide),
	},
}

var defs = []unit.Def{
	{Name: "knight", Tree: "fighter", MaxHealth: 100, Damage: 12, Range: 1.5, AttackInterval: 1, CastTime: 0.3, Speed: 2, Sight: 20, Awareness: 1},
	{Name: "dummy", MaxHealth: 100, Sight: 10, Awareness: 2},
	{Name: "coward", Tree: "coward", MaxHealth: 100, Speed: 1, Sight: 10, RetreatBelow: 0.5},
	{Name: "mason", Tree: "builder", MaxHealth: 50, BuildTime: 0.5},
	{Name: "tower", MaxHealth: 50, BuildTime: 5},
	{Name: "rogue", Tree: "sneak", MaxHealth: 40, Stealth: 1, HideBonus: 2},
}

func newWorld(t *testing.T, opts sim.Options) *sim.World {
	t.Helper()
	cat, err := unit.NewCatalog(defs)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dt == 0 {
		opts.Dt = 0.1
	}
	opts.Record = true
	w, err := sim.New(sim.Config{Units: cat, Trees: trees, Options: opts}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func spawn(t *testing.T, w *sim.World, typ string, team unit.Team, x, y float64) ecs.Entity {
	t.Helper()
	e, err := w.Spawn(typ, team, geom.Vec2{X: x, Y: y})
	if err != nil {
		t.Fatalf("spawn %s: %v", typ, err)
	}
	return e
}

func steps(w *sim.World, n int) {
	for i := 0; i < n; i++ {
		w.Step()
	}
}

func hp(t *testing.T, w *sim.World, e ecs.Entity) float64 {
	t.Helper()
	h, ok := unit.HealthKey.Get(w.Store(), e)
	if !ok {
		t.Fatalf("entity %d has no health", e)
	}
	return h.Current
}

func count(w *sim.World, typ string) int {
	n := 0
	for _, ev := range w.Events() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// bystanders keeps a second unit on each team far away so a single death does
// not end the battle.
func bystanders(t *testing.T, w *sim.World) {
	t.Helper()
	spawn(t, w, "dummy", unit.TeamPlayer, -500, 0)
	spawn(t, w, "dummy", unit.TeamEnemy, 500, 0)
}

func TestAttackLandsAfterCastTime(t *testing.T) {
	w := newWorld(t, sim.Options{})
	k := spawn(t, w, "knight", unit.TeamPlayer, 0, 0)
	d := spawn(t, w, "dummy", unit.TeamEnemy, 1, 0)

	w.Step()
	if got := count(w, combat.EvCast); got != 1 {
		t.Fatalf("expected one cast, got %d", got)
	}
	mv, _ := unit.MovementKey.Get(w.Store(), k)
	if !mv.Anchored {
		t.Fatal("caster should be anchored while casting")
	}
	w.Step()
	if hp(t, w, d) != 100 {
		t.Fatal("damage landed before the cast finished")
	}
	steps(w, 4)
	if hp(t, w, d) != 88 {
		t.Fatalf("expected 88 after the cast, got %v", hp(t, w, d))
	}
	if mv.Anchored {
		t.Fatal("anchor not released after the cast")
	}
}

func TestInterruptedCastDealsNoDamage(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	k := spawn(t, w, "knight", unit.TeamPlayer, 0, 0)
	d := spawn(t, w, "dummy", unit.TeamEnemy, 1, 0)

	w.Step()
	combat.Kill(w, k, d)
	steps(w, 5)
	if hp(t, w, d) != 100 {
		t.Fatalf("interrupted cast still hit: hp %v", hp(t, w, d))
	}
	if mv, ok := unit.MovementKey.Get(w.Store(), k); ok && mv.Anchored {
		t.Fatal("interrupt did not release the anchor")
	}
	if cb, ok := unit.CombatKey.Get(w.Store(), k); ok && cb.Casting {
		t.Fatal("interrupt did not clear the cast")
	}
}

func TestDeathRemovesCorpseLater(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	d := spawn(t, w, "dummy", unit.TeamEnemy, 0, 0)

	if !combat.Damage(w, ecs.Nil, d, 150, "test") {
		t.Fatal("damage refused on a living unit")
	}
	death, _ := unit.DeathKey.Get(w.Store(), d)
	if death.State != unit.Dying {
		t.Fatalf("expected dying, got %v", death.State)
	}
	if combat.Damage(w, ecs.Nil, d, 10, "test") {
		t.Fatal("damage accepted on a dying unit")
	}
	steps(w, 5)
	if !w.Store().Alive(d) {
		t.Fatal("corpse removed too early")
	}
	steps(w, 6)
	if w.Store().Alive(d) {
		t.Fatal("corpse not removed")
	}
	if count(w, combat.EvRemoved) != 1 {
		t.Fatalf("expected one removal event, got %d", count(w, combat.EvRemoved))
	}
}

func TestHealOverTimeTicks(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	d := spawn(t, w, "dummy", unit.TeamPlayer, 0, 0)
	h, _ := unit.HealthKey.Get(w.Store(), d)
	h.Current = 50

	if !combat.HealOverTime(w, d, d, 5, 3, 0.5) {
		t.Fatal("heal refused")
	}
	steps(w, 20)
	if h.Current != 65 {
		t.Fatalf("expected 65 after three ticks, got %v", h.Current)
	}
	if got := count(w, combat.EvHeal); got != 3 {
		t.Fatalf("expected 3 heal events, got %d", got)
	}
}

func TestHealOverTimeStopsOnDestroyedTarget(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	d := spawn(t, w, "dummy", unit.TeamPlayer, 0, 0)
	h, _ := unit.HealthKey.Get(w.Store(), d)
	h.Current = 50
	combat.HealOverTime(w, d, d, 5, 3, 0.5)
	steps(w, 5)
	w.Destroy(d)
	reused := spawn(t, w, "dummy", unit.TeamPlayer, 0, 0)
	if reused != d {
		t.Fatalf("expected id reuse, got %d", reused)
	}
	rh, _ := unit.HealthKey.Get(w.Store(), reused)
	rh.Current = 10
	steps(w, 20)
	if rh.Current != 10 {
		t.Fatalf("heal leaked onto the recycled id: hp %v", rh.Current)
	}
}

func TestAuraPulsesThenCleansUp(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	src := spawn(t, w, "dummy", unit.TeamPlayer, 0, 0)
	near := spawn(t, w, "dummy", unit.TeamEnemy, 2, 0)
	far := spawn(t, w, "dummy", unit.TeamEnemy, 5, 0)

	spec := combat.AuraSpec{Name: "burn", DPS: 10, Radius: 3, Duration: 1, Interval: 0.5}
	if !combat.StartAura(w, src, spec) {
		t.Fatal("aura refused")
	}
	if combat.StartAura(w, src, spec) {
		t.Fatal("same aura applied twice")
	}
	steps(w, 15)
	if got := hp(t, w, near); got != 90 {
		t.Fatalf("expected two pulses of 5, hp %v", got)
	}
	if got := hp(t, w, far); got != 100 {
		t.Fatalf("aura hit out of radius: hp %v", got)
	}
	auras, _ := unit.AurasKey.Get(w.Store(), src)
	if auras.Has("burn") {
		t.Fatal("aura not removed at expiry")
	}
	if count(w, combat.EvRemoveStatus) != 1 {
		t.Fatal("expected one RemoveStatus event")
	}
}

func TestAuraCleanupRunsAfterSourceDies(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	src := spawn(t, w, "dummy", unit.TeamPlayer, 0, 0)
	near := spawn(t, w, "dummy", unit.TeamEnemy, 2, 0)

	combat.StartAura(w, src, combat.AuraSpec{Name: "burn", DPS: 10, Radius: 3, Duration: 3, Interval: 0.5})
	w.Step()
	combat.Kill(w, src, near)
	steps(w, 40)
	if got := hp(t, w, near); got != 95 {
		t.Fatalf("aura kept pulsing after death: hp %v", got)
	}
	if count(w, combat.EvRemoveStatus) != 1 {
		t.Fatal("clean-up did not run for a destroyed source")
	}
}

func TestConstructionCompletesDuringPlacement(t *testing.T) {
	w := newWorld(t, sim.Options{Dt: 0.25, PlacementTime: 2})
	bystanders(t, w)
	m := spawn(t, w, "mason", unit.TeamPlayer, 0, 0)
	steps(w, 4)
	c, ok := unit.ConstructionKey.Get(w.Store(), m)
	if !ok || !c.Done() {
		t.Fatalf("construction not finished: %+v", c)
	}
	if count(w, combat.EvBuilt) != 1 {
		t.Fatal("expected one Built event")
	}
}

func TestConstructionAbandonedWhenCombatStarts(t *testing.T) {
	w := newWorld(t, sim.Options{Dt: 0.25, PlacementTime: 1})
	bystanders(t, w)
	tw := spawn(t, w, "tower", unit.TeamPlayer, 0, 0)
	if !combat.StartConstruction(w, tw, 5, 0.25) {
		t.Fatal("construction refused during placement")
	}
	steps(w, 5)
	if _, ok := unit.ConstructionKey.Get(w.Store(), tw); ok {
		t.Fatal("construction survived the phase change")
	}
	if count(w, combat.EvBuildStopped) != 1 {
		t.Fatal("expected one BuildStopped event")
	}
	if combat.StartConstruction(w, tw, 5, 0.25) {
		t.Fatal("construction started outside placement")
	}
}

func TestLowHealthRetreatsFromThreat(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	c := spawn(t, w, "coward", unit.TeamPlayer, 0, 0)
	spawn(t, w, "dummy", unit.TeamEnemy, 2, 0)
	h, _ := unit.HealthKey.Get(w.Store(), c)
	h.Current = 10

	w.Step()
	p, _ := unit.PositionKey.Get(w.Store(), c)
	if math.Abs(p.X+0.1) > 1e-9 || p.Y != 0 {
		t.Fatalf("expected to step 0.1 away from the threat, at %v", p.Vec2)
	}
	if count(w, combat.EvRetreat) != 1 {
		t.Fatal("expected one Retreat event")
	}
}

func TestHidingDefeatsAwareness(t *testing.T) {
	w := newWorld(t, sim.Options{})
	bystanders(t, w)
	r := spawn(t, w, "rogue", unit.TeamPlayer, 0, 0)
	d := spawn(t, w, "dummy", unit.TeamEnemy, 1, 0)
	tg := w.Targeter()
	if !tg.StealthVisible(d, r) {
		t.Fatal("rogue should be visible before hiding")
	}
	w.Step()
	if tg.StealthVisible(d, r) {
		t.Fatal("hidden rogue still visible")
	}
	if count(w, combat.EvHide) != 1 {
		t.Fatal("expected one Hide event")
	}
}
