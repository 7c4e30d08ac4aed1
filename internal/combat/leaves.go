package combat

import (
	"fmt"

	"battlecore/internal/bt"
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/unit"
)

// Leaf and predicate names used in tree specs.
const (
	LeafAcquireTarget = "acquire_target"
	LeafHasTarget     = "has_target"
	LeafTargetInRange = "target_in_range"
	LeafAttack        = "attack"
	LeafMoveToTarget  = "move_to_target"
	LeafLowHealth     = "low_health"
	LeafHealSelf      = "heal_self"
	LeafRetreat       = "retreat"
	LeafHealAlly      = "heal_ally"
	LeafCastAura      = "cast_aura"
	LeafMoveToCluster = "move_to_cluster"
	LeafBuild         = "build"
	LeafHide          = "hide"
	LeafIdle          = "idle"

	PredAlive     = "alive"
	PredPlacement = "placement"
	PredCombat    = "combat"
)

// MinAuraCluster is how many enemies move_to_cluster wants grouped together.
const MinAuraCluster = 2

var (
	castEndKey = bt.NewKey[float64]("castEnd")
	startedKey = bt.NewKey[bool]("started")
)

// Register publishes every built-in leaf and predicate on rt.
func Register(rt *bt.Runtime) error {
	for _, n := range Leaves() {
		if err := rt.RegisterLeaf(n); err != nil {
			return fmt.Errorf("combat: %w", err)
		}
	}
	preds := []struct {
		name string
		p    bt.Predicate
	}{
		{PredAlive, func(c *bt.Context) bool { return unit.IsAlive(c.Store(), c.Entity) }},
		{PredPlacement, phaseIs(unit.PhasePlacement)},
		{PredCombat, phaseIs(unit.PhaseCombat)},
	}
	for _, p := range preds {
		if err := rt.RegisterPredicate(p.name, p.p); err != nil {
			return fmt.Errorf("combat: %w", err)
		}
	}
	return nil
}

func phaseIs(ph unit.Phase) bt.Predicate {
	return func(c *bt.Context) bool {
		w, ok := c.Env.(World)
		return ok && w.Phase() == ph
	}
}

// Leaves builds a fresh set of the built-in leaves.
func Leaves() []bt.Node {
	return []bt.Node{
		bt.NewAction(LeafAcquireTarget, withWorld(acquireTarget)),
		bt.NewCondition(LeafHasTarget, hasTarget),
		bt.NewCondition(LeafTargetInRange, targetInRange),
		attackAction(),
		bt.NewAction(LeafMoveToTarget, withWorld(moveToTarget)),
		bt.NewCondition(LeafLowHealth, lowHealth),
		bt.NewAction(LeafHealSelf, withWorld(healSelf)),
		retreatAction(),
		bt.NewAction(LeafHealAlly, withWorld(healAlly)),
		bt.NewAction(LeafCastAura, withWorld(castAura)),
		bt.NewAction(LeafMoveToCluster, withWorld(moveToCluster)),
		buildAction(),
		bt.NewAction(LeafHide, withWorld(hide)),
		bt.NewAction(LeafIdle, func(*bt.Context) bt.Result { return bt.Succeed(nil) }),
	}
}

// withWorld fails the leaf when evaluated outside a combat World.
func withWorld(fn func(c *bt.Context, w World) bt.Result) func(*bt.Context) bt.Result {
	return func(c *bt.Context) bt.Result {
		w, ok := c.Env.(World)
		if !ok {
			return bt.Fail()
		}
		return fn(c, w)
	}
}

func posOf(s *ecs.Store, e ecs.Entity) (geom.Vec2, bool) {
	p, ok := unit.PositionKey.Get(s, e)
	if !ok || p == nil {
		return geom.Vec2{}, false
	}
	return p.Vec2, true
}

func moveTo(dest geom.Vec2) bt.Result {
	d := bt.NewMap()
	DestKey.Set(d, dest)
	return bt.Run(d)
}

// currentTarget reads the blackboard target and drops it once it stops being a
// living unit.
func currentTarget(c *bt.Context) (ecs.Entity, bool) {
	t, ok := TargetKey.Get(c.Board())
	if !ok {
		return ecs.Nil, false
	}
	if !unit.IsAlive(c.Store(), t) {
		TargetKey.Delete(c.Board())
		return ecs.Nil, false
	}
	return t, true
}

func acquireTarget(c *bt.Context, w World) bt.Result {
	def, ok := w.Targeter().Def(c.Entity)
	if !ok {
		return bt.Fail()
	}
	tg := w.Targeter()
	seen := tg.VisibleEnemies(c.Entity, def.Sight)
	t, ok := tg.FindWeakest(c.Entity, seen, true)
	if !ok {
		TargetKey.Delete(c.Board())
		return bt.Fail()
	}
	TargetKey.Set(c.Board(), t)
	out := bt.NewMap()
	TargetKey.Set(out, t)
	if from, ok := posOf(c.Store(), c.Entity); ok {
		if to, ok := posOf(c.Store(), t); ok {
			RangeKey.Set(out, from.Dist(to))
		}
	}
	return bt.Succeed(out)
}

func hasTarget(c *bt.Context) bool {
	_, ok := currentTarget(c)
	return ok
}

func targetInRange(c *bt.Context) bool {
	t, ok := currentTarget(c)
	if !ok {
		return false
	}
	cb, ok := unit.CombatKey.Get(c.Store(), c.Entity)
	if !ok {
		return false
	}
	from, ok1 := posOf(c.Store(), c.Entity)
	to, ok2 := posOf(c.Store(), t)
	return ok1 && ok2 && from.Within(to, cb.Range)
}

// attackAction swings at the blackboard target. Damage lands after the cast
// time through the scheduler; the caster stays anchored until the session ends.
func attackAction() *bt.Action {
	return bt.NewAction(LeafAttack, withWorld(func(c *bt.Context, w World) bt.Result {
		s := c.Store()
		cb, ok := unit.CombatKey.Get(s, c.Entity)
		if !ok || !cb.Casting {
			return bt.Fail()
		}
		if _, ok := currentTarget(c); !ok {
			return bt.Fail()
		}
		end, _ := castEndKey.Get(c.Vars())
		if c.Now() < end {
			return bt.Run(nil)
		}
		return bt.Succeed(nil)
	})).OnStart(func(c *bt.Context) {
		w, ok := c.Env.(World)
		if !ok {
			return
		}
		s := c.Store()
		cb, ok := unit.CombatKey.Get(s, c.Entity)
		if !ok || !cb.Ready(c.Now()) || !targetInRange(c) {
			return
		}
		target, _ := currentTarget(c)
		now := c.Now()
		cb.Trigger(now)
		cb.Casting = true
		cb.CastSeq++
		castEndKey.Set(c.Vars(), now+cb.CastTime)
		if mv, ok := unit.MovementKey.Get(s, c.Entity); ok {
			mv.Anchored = true
		}
		if st, ok := unit.StealthKey.Get(s, c.Entity); ok {
			st.Hiding = false
		}
		w.Emit(Event{T: now, Type: EvCast, Payload: map[string]any{
			"caster": id(c.Entity), "target": id(target), "skill": LeafAttack, "cast": cb.CastTime,
		}})

		self, seq, dmg := c.Entity, cb.CastSeq, cb.Damage
		if cb.CastTime <= 0 {
			Damage(w, self, target, dmg, LeafAttack)
			return
		}
		w.After(self, cb.CastTime, func() error {
			cur, ok := unit.CombatKey.Get(s, self)
			if !ok || !cur.Casting || cur.CastSeq != seq || !unit.IsAlive(s, self) {
				return nil
			}
			Damage(w, self, target, dmg, LeafAttack)
			return nil
		})
	}).OnEnd(func(c *bt.Context, _ bt.Status) {
		s := c.Store()
		if cb, ok := unit.CombatKey.Get(s, c.Entity); ok {
			cb.Casting = false
		}
		if mv, ok := unit.MovementKey.Get(s, c.Entity); ok {
			mv.Anchored = false
		}
		castEndKey.Delete(c.Vars())
	})
}

func moveToTarget(c *bt.Context, w World) bt.Result {
	t, ok := currentTarget(c)
	if !ok {
		return bt.Fail()
	}
	if targetInRange(c) {
		return bt.Succeed(nil)
	}
	to, ok := posOf(c.Store(), t)
	if !ok {
		return bt.Fail()
	}
	return moveTo(to)
}

func lowHealth(c *bt.Context) bool {
	w, ok := c.Env.(World)
	if !ok {
		return false
	}
	def, ok := w.Targeter().Def(c.Entity)
	if !ok || def.RetreatBelow <= 0 {
		return false
	}
	h, ok := unit.HealthKey.Get(c.Store(), c.Entity)
	return ok && h.Fraction() < def.RetreatBelow
}

func healSelf(c *bt.Context, w World) bt.Result {
	def, ok := w.Targeter().Def(c.Entity)
	if !ok || def.HealAmount <= 0 {
		return bt.Fail()
	}
	if !HealOverTime(w, c.Entity, c.Entity, def.HealAmount, max(def.HealTicks, 1), def.HealInterval) {
		return bt.Fail()
	}
	return bt.Succeed(nil)
}

// retreatAction steers directly away from the nearest visible enemy.
func retreatAction() *bt.Action {
	return bt.NewAction(LeafRetreat, withWorld(func(c *bt.Context, w World) bt.Result {
		def, ok := w.Targeter().Def(c.Entity)
		if !ok {
			return bt.Fail()
		}
		tg := w.Targeter()
		threat, ok := tg.Nearest(c.Entity, tg.VisibleEnemies(c.Entity, def.Sight))
		if !ok {
			return bt.Succeed(nil)
		}
		from, _ := posOf(c.Store(), c.Entity)
		away, _ := posOf(c.Store(), threat)
		dir := from.Sub(away).Norm()
		if dir == (geom.Vec2{}) {
			dir = geom.Vec2{X: -1}
		}
		return moveTo(from.Add(dir.Scale(max(def.Speed, 1))))
	})).OnStart(func(c *bt.Context) {
		if w, ok := c.Env.(World); ok {
			w.Emit(Event{T: c.Now(), Type: EvRetreat, Payload: map[string]any{"id": id(c.Entity)}})
		}
	})
}

func healAlly(c *bt.Context, w World) bt.Result {
	def, ok := w.Targeter().Def(c.Entity)
	if !ok || def.HealAmount <= 0 {
		return bt.Fail()
	}
	s := c.Store()
	var hurt []ecs.Entity
	for _, a := range w.Targeter().AlliesInRange(c.Entity, def.Range) {
		if h, ok := unit.HealthKey.Get(s, a); ok && h.Current < h.Max {
			hurt = append(hurt, a)
		}
	}
	t, ok := w.Targeter().FindWeakest(c.Entity, hurt, true)
	if !ok {
		return bt.Fail()
	}
	if !HealOverTime(w, c.Entity, t, def.HealAmount, max(def.HealTicks, 1), def.HealInterval) {
		return bt.Fail()
	}
	out := bt.NewMap()
	TargetKey.Set(out, t)
	return bt.Succeed(out)
}

func castAura(c *bt.Context, w World) bt.Result {
	def, ok := w.Targeter().Def(c.Entity)
	if !ok || def.AuraDPS <= 0 {
		return bt.Fail()
	}
	if len(w.Targeter().EnemiesInRange(c.Entity, def.AuraRadius)) == 0 {
		return bt.Fail()
	}
	ok = StartAura(w, c.Entity, AuraSpec{
		Name:     def.Name + ".aura",
		DPS:      def.AuraDPS,
		Radius:   def.AuraRadius,
		Duration: def.AuraDuration,
	})
	if !ok {
		return bt.Fail()
	}
	return bt.Succeed(nil)
}

func moveToCluster(c *bt.Context, w World) bt.Result {
	def, ok := w.Targeter().Def(c.Entity)
	if !ok {
		return bt.Fail()
	}
	tg := w.Targeter()
	dest, _, ok := tg.FindBestClusterPosition(tg.VisibleEnemies(c.Entity, def.Sight), MinAuraCluster)
	if !ok {
		return bt.Fail()
	}
	from, _ := posOf(c.Store(), c.Entity)
	reach := def.AuraRadius / 2
	if reach <= 0 {
		reach = 1
	}
	if from.Within(dest, reach) {
		return bt.Succeed(nil)
	}
	return moveTo(dest)
}

// buildAction starts the entity's construction and runs until it completes.
// It fails if the build is abandoned.
func buildAction() *bt.Action {
	return bt.NewAction(LeafBuild, withWorld(func(c *bt.Context, w World) bt.Result {
		s := c.Store()
		cons, ok := unit.ConstructionKey.Get(s, c.Entity)
		if ok {
			if cons.Done() {
				return bt.Succeed(nil)
			}
			startedKey.Set(c.Vars(), true)
			return bt.Run(nil)
		}
		if startedKey.Has(c.Vars()) {
			return bt.Fail()
		}
		def, ok := w.Targeter().Def(c.Entity)
		if !ok || def.BuildTime <= 0 {
			return bt.Fail()
		}
		if !StartConstruction(w, c.Entity, def.BuildTime, min(def.BuildTime, 0.5)) {
			return bt.Fail()
		}
		startedKey.Set(c.Vars(), true)
		return bt.Run(nil)
	})).OnEnd(func(c *bt.Context, _ bt.Status) {
		startedKey.Delete(c.Vars())
	})
}

func hide(c *bt.Context, w World) bt.Result {
	st, ok := unit.StealthKey.Get(c.Store(), c.Entity)
	if !ok || st.HideBonus <= 0 {
		return bt.Fail()
	}
	if !st.Hiding {
		st.Hiding = true
		w.Emit(Event{T: c.Now(), Type: EvHide, Payload: map[string]any{"id": id(c.Entity)}})
	}
	return bt.Succeed(nil)
}
