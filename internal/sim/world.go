// Package sim drives one battle: scheduler first, then every unit's tree in id
// order, then movement.
package sim

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"math/rand"

	"battlecore/internal/bt"
	"battlecore/internal/combat"
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/query"
	"battlecore/internal/sched"
	"battlecore/internal/spatial"
	"battlecore/internal/unit"
	"battlecore/internal/util"
)

type Options struct {
	Name          string
	Dt            float64
	PlacementTime float64
	TimeLimit     float64
	CellSize      float64
	Seed          int64
	// Record keeps every event in memory; the checksum is kept either way.
	Record bool
}

type Config struct {
	Units *unit.Catalog
	Trees []bt.Spec
	Sight query.Sight
	Options
}

// World owns one simulation. It is not safe for concurrent use; run separate
// worlds on separate goroutines.
type World struct {
	store *ecs.Store
	sched *sched.Scheduler
	rt    *bt.Runtime
	tg    *query.Targeter
	defs  *unit.Catalog
	index *spatial.Index
	rng   *rand.Rand
	log   *slog.Logger
	opts  Options

	tick   uint64
	now    float64
	phase  unit.Phase
	winner unit.Team

	events   []combat.Event
	nEvents  int
	digest   hash.Hash
	bySource map[string]float64
}

func New(cfg Config, log *slog.Logger) (*World, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Units == nil {
		return nil, fmt.Errorf("sim: %w: no unit catalog", unit.ErrUnknownType)
	}
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("sim: tick length must be positive, got %v", cfg.Dt)
	}
	rt := bt.NewRuntime(log)
	if err := combat.Register(rt); err != nil {
		return nil, err
	}
	if err := rt.Load(cfg.Trees...); err != nil {
		return nil, err
	}

	w := &World{
		store:    ecs.NewStore(),
		sched:    sched.New(log),
		rt:       rt,
		defs:     cfg.Units,
		index:    spatial.NewIndex(cfg.CellSize),
		rng:      util.New(cfg.Seed),
		log:      log,
		opts:     cfg.Options,
		phase:    unit.PhasePlacement,
		digest:   sha256.New(),
		bySource: map[string]float64{},
	}
	w.tg = query.New(w.store, w.index, cfg.Sight, cfg.Units)
	rt.Attach(w.store)
	w.store.OnDestroy(w.sched.Release)
	if cfg.PlacementTime <= 0 {
		w.phase = unit.PhaseCombat
	}
	return w, nil
}

func (w *World) Store() *ecs.Store           { return w.store }
func (w *World) Now() float64                { return w.now }
func (w *World) Targeter() *query.Targeter   { return w.tg }
func (w *World) Phase() unit.Phase           { return w.phase }
func (w *World) Runtime() *bt.Runtime        { return w.rt }
func (w *World) Scheduler() *sched.Scheduler { return w.sched }
func (w *World) Ticks() uint64               { return w.tick }
func (w *World) Winner() unit.Team           { return w.winner }

// Events is empty unless Options.Record is set.
func (w *World) Events() []combat.Event { return w.events }

// After schedules fn on behalf of owner. It is skipped if owner was destroyed
// in the meantime, including when its id has since been reused.
func (w *World) After(owner ecs.Entity, delay float64, fn sched.Action) {
	h := w.store.Handle(owner)
	w.sched.Schedule(func() error {
		if !w.store.Valid(h) {
			return nil
		}
		return fn()
	}, delay, owner)
}

// AfterAlways schedules fn with no owner check. fn must validate what it touches.
func (w *World) AfterAlways(owner ecs.Entity, delay float64, fn sched.Action) {
	w.sched.Schedule(fn, delay, owner)
}

func (w *World) Destroy(e ecs.Entity) {
	if err := w.store.DestroyEntity(e); err != nil {
		w.log.Debug("destroy skipped", "entity", e, "err", err)
		return
	}
	w.Emit(combat.Event{T: w.now, Type: combat.EvRemoved, Payload: map[string]any{"id": int(e)}})
}

// Emit folds ev into the checksum and records it when recording is on.
func (w *World) Emit(ev combat.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		w.log.Error("event not encodable", "type", ev.Type, "err", err)
		return
	}
	w.digest.Write(b)
	w.digest.Write([]byte{'\n'})
	w.nEvents++
	if ev.Type == combat.EvHit {
		if src, ok := ev.Payload["source"].(string); ok {
			dmg, _ := ev.Payload["dmg"].(float64)
			w.bySource[src] += dmg
		}
	}
	if w.opts.Record {
		w.events = append(w.events, ev)
	}
}

// Spawn creates a unit of the named type.
func (w *World) Spawn(typeName string, team unit.Team, at geom.Vec2) (ecs.Entity, error) {
	def, err := w.defs.Lookup(typeName)
	if err != nil {
		return ecs.Nil, err
	}
	if def.Tree != "" {
		if _, err := w.rt.Tree(def.Tree); err != nil {
			return ecs.Nil, fmt.Errorf("spawn %q: %w", typeName, err)
		}
	}
	s := w.store
	e := s.CreateEntity()
	adds := []error{
		unit.PositionKey.Add(s, e, &unit.Position{Vec2: at}),
		unit.TeamKey.Add(s, e, team),
		unit.UnitTypeKey.Add(s, e, unit.UnitType{Name: def.Name}),
		unit.HealthKey.Add(s, e, &unit.Health{Current: def.MaxHealth, Max: def.MaxHealth}),
		unit.DeathKey.Add(s, e, &unit.Death{State: unit.Alive}),
		unit.MovementKey.Add(s, e, &unit.Movement{Speed: def.Speed}),
		unit.AurasKey.Add(s, e, &unit.Auras{}),
	}
	if def.Damage > 0 {
		adds = append(adds, unit.CombatKey.Add(s, e, &unit.Combat{
			Damage:   def.Damage,
			Range:    def.Range,
			Interval: def.AttackInterval,
			CastTime: def.CastTime,
		}))
	}
	if def.Stealth > 0 || def.HideBonus > 0 {
		adds = append(adds, unit.StealthKey.Add(s, e, &unit.Stealth{Base: def.Stealth, HideBonus: def.HideBonus}))
	}
	if def.Tree != "" {
		adds = append(adds, bt.AIStateKey.Add(s, e, &bt.AIState{Tree: def.Tree, Board: bt.NewMap()}))
	}
	for _, err := range adds {
		if err != nil {
			_ = s.DestroyEntity(e)
			return ecs.Nil, fmt.Errorf("spawn %q: %w", typeName, err)
		}
	}
	w.Emit(combat.Event{T: w.now, Type: combat.EvSpawn, Payload: map[string]any{
		"id": int(e), "type": def.Name, "team": team.String(), "x": at.X, "y": at.Y,
	}})
	return e, nil
}

// Jitter returns a point within r of p from the world's seeded generator.
func (w *World) Jitter(p geom.Vec2, r float64) geom.Vec2 {
	if r <= 0 {
		return p
	}
	return geom.Vec2{
		X: p.X + (w.rng.Float64()*2-1)*r,
		Y: p.Y + (w.rng.Float64()*2-1)*r,
	}
}

// Step advances one tick.
func (w *World) Step() {
	if w.phase == unit.PhaseEnded {
		return
	}
	w.tick++
	w.now = float64(w.tick) * w.opts.Dt
	if w.phase == unit.PhasePlacement && w.now >= w.opts.PlacementTime {
		w.setPhase(unit.PhaseCombat)
	}
	// Positions only change in move, so one rebuild serves callbacks and trees.
	w.index.Rebuild(w.store)
	w.sched.Tick(w.now)
	w.think()
	w.move()
	w.checkEnd()
}

func (w *World) think() {
	for _, e := range w.store.EntitiesWith(bt.AIStateKey.Type()) {
		if !w.store.Alive(e) {
			continue
		}
		st, ok := bt.AIStateKey.Get(w.store, e)
		if !ok {
			continue
		}
		tree, err := w.rt.Tree(st.Tree)
		if err != nil {
			w.log.Warn("unit has no tree", "entity", e, "err", err)
			continue
		}
		mv, hasMove := unit.MovementKey.Get(w.store, e)
		if hasMove {
			mv.Stop()
		}
		if !unit.IsAlive(w.store, e) {
			w.rt.Interrupt(tree.Root, e, w)
			continue
		}
		res, ok := tree.Evaluate(e, w)
		if !ok || res.Status != bt.Running || !hasMove {
			continue
		}
		if dest, ok := combat.DestKey.Get(res.Data); ok {
			mv.Steer(dest)
		}
	}
}

func (w *World) move() {
	for _, e := range w.store.EntitiesWith(unit.MovementKey.Type(), unit.PositionKey.Type()) {
		mv, _ := unit.MovementKey.Get(w.store, e)
		if !mv.HasDest || mv.Anchored || mv.Speed <= 0 || !unit.IsAlive(w.store, e) {
			continue
		}
		p, _ := unit.PositionKey.Get(w.store, e)
		p.Vec2 = p.Vec2.Toward(mv.Dest, mv.Speed*w.opts.Dt)
	}
}

func (w *World) checkEnd() {
	if w.phase != unit.PhaseCombat {
		return
	}
	teams := map[unit.Team]bool{}
	for _, e := range w.store.EntitiesWith(unit.TeamKey.Type(), unit.HealthKey.Type()) {
		if t, _ := unit.TeamKey.Get(w.store, e); t != unit.TeamNeutral && unit.IsAlive(w.store, e) {
			teams[t] = true
		}
	}
	switch {
	case len(teams) == 1:
		for t := range teams {
			w.winner = t
		}
		w.setPhase(unit.PhaseEnded)
	case len(teams) == 0:
		w.setPhase(unit.PhaseEnded)
	case w.opts.TimeLimit > 0 && w.now >= w.opts.TimeLimit:
		w.setPhase(unit.PhaseEnded)
	}
}

func (w *World) setPhase(p unit.Phase) {
	w.Emit(combat.Event{T: w.now, Type: combat.EvPhase, Payload: map[string]any{
		"from": w.phase.String(), "to": p.String(),
	}})
	w.log.Debug("phase change", "from", w.phase, "to", p, "t", w.now)
	w.phase = p
}
