package combat

import (
	"encoding/json"

	"battlecore/internal/bt"
	"battlecore/internal/ecs"
	"battlecore/internal/geom"
	"battlecore/internal/query"
	"battlecore/internal/sched"
	"battlecore/internal/unit"
)

type Event struct {
	T       float64        `json:"t"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Event types.
const (
	EvSpawn        = "Spawn"
	EvCast         = "Cast"
	EvHit          = "Hit"
	EvHeal         = "Heal"
	EvApplyStatus  = "ApplyStatus"
	EvRemoveStatus = "RemoveStatus"
	EvDeath        = "Death"
	EvRemoved      = "Removed"
	EvPhase        = "Phase"
	EvBuilt        = "Built"
	EvBuildStopped = "BuildStopped"
	EvRetreat      = "Retreat"
	EvHide         = "Hide"
)

// World is what leaves and abilities need beyond the store and clock.
type World interface {
	bt.Env
	Targeter() *query.Targeter
	Phase() unit.Phase
	// After runs fn after delay unless owner has been destroyed by then.
	After(owner ecs.Entity, delay float64, fn sched.Action)
	// AfterAlways runs fn after delay regardless of owner.
	AfterAlways(owner ecs.Entity, delay float64, fn sched.Action)
	Destroy(e ecs.Entity)
	Emit(ev Event)
}

// Blackboard slots written and read by the built-in leaves.
var (
	TargetKey = bt.NewKey[ecs.Entity]("target")
	// DestKey in a Running result tells the driver where to steer this tick.
	DestKey  = bt.NewKey[geom.Vec2]("destination")
	RangeKey = bt.NewKey[float64]("distance")
)

func MarshalPretty(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}
