package combat

import (
	"battlecore/internal/ecs"
	"battlecore/internal/sched"
	"battlecore/internal/unit"
)

const (
	DefaultCorpseTime   = 1.0
	DefaultAuraInterval = 0.5
)

func id(e ecs.Entity) int { return int(e) }

// Damage removes amount from target's health and kills it at zero. It reports
// false when target is not a living unit.
func Damage(w World, src, target ecs.Entity, amount float64, source string) bool {
	s := w.Store()
	if !unit.IsAlive(s, target) {
		return false
	}
	h, _ := unit.HealthKey.Get(s, target)
	h.Current = max(h.Current-max(amount, 0), 0)
	w.Emit(Event{T: w.Now(), Type: EvHit, Payload: map[string]any{
		"caster": id(src), "target": id(target), "dmg": amount, "hp": h.Current, "source": source,
	}})
	if h.Current <= 0 {
		Kill(w, target, src)
	}
	return true
}

// Heal restores up to amount and returns what was actually restored.
func Heal(w World, src, target ecs.Entity, amount float64) float64 {
	s := w.Store()
	if !unit.IsAlive(s, target) {
		return 0
	}
	h, _ := unit.HealthKey.Get(s, target)
	before := h.Current
	h.Current = min(h.Current+max(amount, 0), h.Max)
	got := h.Current - before
	w.Emit(Event{T: w.Now(), Type: EvHeal, Payload: map[string]any{
		"caster": id(src), "target": id(target), "amount": got, "hp": h.Current,
	}})
	return got
}

// Kill marks e as dying and schedules the corpse removal.
func Kill(w World, e, by ecs.Entity) {
	s := w.Store()
	now := w.Now()
	if d, ok := unit.DeathKey.Get(s, e); ok && d.State != unit.Alive {
		return
	}
	_ = unit.DeathKey.Set(s, e, &unit.Death{State: unit.Dying, Since: now})
	if mv, ok := unit.MovementKey.Get(s, e); ok {
		mv.Stop()
	}
	w.Emit(Event{T: now, Type: EvDeath, Payload: map[string]any{"id": id(e), "by": id(by)}})

	delay := DefaultCorpseTime
	if def, ok := w.Targeter().Def(e); ok && def.CorpseTime > 0 {
		delay = def.CorpseTime
	}
	w.After(e, delay, func() error {
		if d, ok := unit.DeathKey.Get(s, e); ok {
			d.State = unit.Dead
		}
		w.Destroy(e)
		return nil
	})
}

// HealOverTime heals target every interval, ticks times. Each tick re-checks
// the target, so a destroyed or dead target ends the effect quietly.
func HealOverTime(w World, src, target ecs.Entity, amount float64, ticks int, interval float64) bool {
	s := w.Store()
	if ticks <= 0 || !unit.IsAlive(s, target) {
		return false
	}
	if interval <= 0 {
		interval = DefaultAuraInterval
	}
	h := s.Handle(target)
	w.Emit(Event{T: w.Now(), Type: EvApplyStatus, Payload: map[string]any{
		"target": id(target), "status": "regen", "dur": float64(ticks) * interval, "caster": id(src),
	}})
	left := ticks
	var pulse sched.Action
	pulse = func() error {
		if !s.Valid(h) || !unit.IsAlive(s, target) {
			return nil
		}
		Heal(w, src, target, amount)
		left--
		if left > 0 {
			w.AfterAlways(src, interval, pulse)
		}
		return nil
	}
	w.AfterAlways(src, interval, pulse)
	return true
}

type AuraSpec struct {
	Name     string
	DPS      float64
	Radius   float64
	Duration float64
	Interval float64
}

// StartAura puts a damage aura on src. It pulses by rescheduling itself every
// Interval while src lives; a separate clean-up always runs at expiry and
// removes the aura even if the pulses stopped early.
func StartAura(w World, src ecs.Entity, spec AuraSpec) bool {
	s := w.Store()
	if spec.Duration <= 0 || !unit.IsAlive(s, src) {
		return false
	}
	if spec.Interval <= 0 {
		spec.Interval = DefaultAuraInterval
	}
	auras, ok := unit.AurasKey.Get(s, src)
	if !ok {
		auras = &unit.Auras{}
		if err := unit.AurasKey.Set(s, src, auras); err != nil {
			return false
		}
	}
	if auras.Has(spec.Name) {
		return false
	}
	now := w.Now()
	until := now + spec.Duration
	auras.Put(unit.Aura{Name: spec.Name, Source: src, Until: until})
	w.Emit(Event{T: now, Type: EvApplyStatus, Payload: map[string]any{
		"target": id(src), "status": spec.Name, "dur": spec.Duration, "caster": id(src),
	}})

	var pulse sched.Action
	pulse = func() error {
		if w.Now() >= until || !unit.IsAlive(s, src) {
			return nil
		}
		a, ok := unit.AurasKey.Get(s, src)
		if !ok || !a.Has(spec.Name) {
			return nil
		}
		for _, e := range w.Targeter().EnemiesInRange(src, spec.Radius) {
			Damage(w, src, e, spec.DPS*spec.Interval, spec.Name)
		}
		w.After(src, spec.Interval, pulse)
		return nil
	}
	w.After(src, 0, pulse)

	h := s.Handle(src)
	w.AfterAlways(src, spec.Duration, func() error {
		if s.Valid(h) {
			if a, ok := unit.AurasKey.Get(s, src); ok {
				a.Drop(spec.Name)
			}
		}
		w.Emit(Event{T: w.Now(), Type: EvRemoveStatus, Payload: map[string]any{
			"target": id(src), "status": spec.Name,
		}})
		return nil
	})
	return true
}

// StartConstruction begins a build timer that only advances during placement.
// Leaving placement before completion abandons the build.
func StartConstruction(w World, e ecs.Entity, duration, step float64) bool {
	s := w.Store()
	if w.Phase() != unit.PhasePlacement || duration <= 0 {
		return false
	}
	if step <= 0 {
		step = duration
	}
	if err := unit.ConstructionKey.Add(s, e, &unit.Construction{Duration: duration}); err != nil {
		return false
	}
	var advance sched.Action
	advance = func() error {
		c, ok := unit.ConstructionKey.Get(s, e)
		if !ok {
			return nil
		}
		if w.Phase() != unit.PhasePlacement {
			unit.ConstructionKey.Remove(s, e)
			w.Emit(Event{T: w.Now(), Type: EvBuildStopped, Payload: map[string]any{
				"id": id(e), "progress": c.Progress,
			}})
			return nil
		}
		c.Progress = min(c.Progress+step, c.Duration)
		if c.Done() {
			w.Emit(Event{T: w.Now(), Type: EvBuilt, Payload: map[string]any{"id": id(e)}})
			return nil
		}
		w.After(e, step, advance)
		return nil
	}
	w.After(e, step, advance)
	return true
}
