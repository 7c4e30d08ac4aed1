package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	"battlecore/internal/bt"
	"battlecore/internal/combat"
	"battlecore/internal/config"
	"battlecore/internal/ecs"
	"battlecore/internal/sched"
	"battlecore/internal/spatial"
	"battlecore/internal/unit"
)

type Survivor struct {
	ID   int     `json:"id"`
	Type string  `json:"type"`
	Team string  `json:"team"`
	HP   float64 `json:"hp"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	// Board is the unit's blackboard when the run stopped.
	Board map[string]any `json:"board,omitempty"`
}

type Result struct {
	RunID          string             `json:"run_id"`
	Scenario       string             `json:"scenario"`
	Seed           int64              `json:"seed"`
	Winner         string             `json:"winner"`
	Duration       float64            `json:"duration"`
	Ticks          uint64             `json:"ticks"`
	EventCount     int                `json:"event_count"`
	Checksum       string             `json:"checksum"`
	StateChecksum  string             `json:"state_checksum"`
	Survivors      []Survivor         `json:"survivors"`
	DamageBySource map[string]float64 `json:"damage_by_source"`
	Scheduler      sched.Stats        `json:"scheduler"`
	Events         []combat.Event     `json:"events,omitempty"`
}

// FromBundle builds a world for the bundle's scenario and spawns its units.
// Spawn jitter comes from the world's seeded generator, so a seed fixes the layout.
func FromBundle(b *config.Bundle, record bool, log *slog.Logger) (*World, error) {
	sc := b.Scenario
	w, err := New(Config{
		Units: b.Catalog,
		Trees: b.Trees.Trees,
		Sight: &spatial.Walls{Segments: sc.Walls},
		Options: Options{
			Name:          sc.Name,
			Dt:            sc.Dt,
			PlacementTime: sc.PlacementTime,
			TimeLimit:     sc.TimeLimit,
			CellSize:      sc.CellSize,
			Seed:          sc.Seed,
			Record:        record,
		},
	}, log)
	if err != nil {
		return nil, err
	}
	for i, sp := range sc.Spawns {
		team, err := unit.ParseTeam(sp.Team)
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", i, err)
		}
		for n := 0; n < sp.Count; n++ {
			at := sp.At
			if n > 0 {
				at = w.Jitter(sp.At, sp.Spread)
			}
			if _, err := w.Spawn(sp.Type, team, at); err != nil {
				return nil, fmt.Errorf("spawn %d: %w", i, err)
			}
		}
	}
	return w, nil
}

// Run steps until the battle ends and reports the outcome. A world without a
// time limit stops after maxTicks; zero means no cap.
func (w *World) Run(maxTicks uint64) Result {
	w.log.Info("simulation started",
		"seed", w.opts.Seed, "units", w.store.Len(), "trees", w.rt.TreeNames())
	for w.phase != unit.PhaseEnded {
		if maxTicks > 0 && w.tick >= maxTicks {
			break
		}
		w.Step()
	}
	res := w.Result()
	w.log.Info("simulation finished",
		"winner", res.Winner, "t", res.Duration, "ticks", res.Ticks, "events", res.EventCount)
	return res
}

// Result snapshots the world's outcome so far.
func (w *World) Result() Result {
	winner := "draw"
	if w.winner != unit.TeamNeutral {
		winner = w.winner.String()
	}
	dmg := make(map[string]float64, len(w.bySource))
	for k, v := range w.bySource {
		dmg[k] = v
	}
	return Result{
		RunID:          RunID(w.opts.Seed, w.tick).String(),
		Scenario:       w.opts.Name,
		Seed:           w.opts.Seed,
		Winner:         winner,
		Duration:       w.now,
		Ticks:          w.tick,
		EventCount:     w.nEvents,
		Checksum:       w.Checksum(),
		StateChecksum:  w.StateChecksum(),
		Survivors:      w.survivors(),
		DamageBySource: dmg,
		Scheduler:      w.sched.Stats(),
		Events:         w.events,
	}
}

// Checksum is the hex SHA-256 over every event emitted so far. Two peers fed the
// same inputs agree on it tick for tick.
func (w *World) Checksum() string {
	return hex.EncodeToString(w.digest.Sum(nil))
}

// StateChecksum hashes every live unit's id, team, health and position in id
// order. It catches divergence that produced no event.
func (w *World) StateChecksum() string {
	h := sha256.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	s := w.store
	for _, e := range w.store.EntitiesWith(unit.HealthKey.Type(), unit.PositionKey.Type()) {
		binary.LittleEndian.PutUint32(buf[:4], uint32(e))
		h.Write(buf[:4])
		t, _ := unit.TeamKey.Get(s, e)
		h.Write([]byte{byte(t)})
		hp, _ := unit.HealthKey.Get(s, e)
		p, _ := unit.PositionKey.Get(s, e)
		put(hp.Current)
		put(p.X)
		put(p.Y)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) survivors() []Survivor {
	s := w.store
	var out []Survivor
	for _, e := range s.EntitiesWith(unit.HealthKey.Type(), unit.PositionKey.Type()) {
		if !unit.IsAlive(s, e) {
			continue
		}
		out = append(out, survivorOf(s, e))
	}
	return out
}

func survivorOf(s *ecs.Store, e ecs.Entity) Survivor {
	hp, _ := unit.HealthKey.Get(s, e)
	p, _ := unit.PositionKey.Get(s, e)
	t, _ := unit.TeamKey.Get(s, e)
	ut, _ := unit.UnitTypeKey.Get(s, e)
	sv := Survivor{ID: int(e), Type: ut.Name, Team: t.String(), HP: hp.Current, X: p.X, Y: p.Y}
	if st, ok := bt.AIStateKey.Get(s, e); ok && st.Board.Len() > 0 {
		sv.Board = st.Board.Snapshot()
	}
	return sv
}
