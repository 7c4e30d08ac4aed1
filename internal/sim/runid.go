package sim

import (
	"time"

	"github.com/oklog/ulid/v2"

	"battlecore/internal/util"
)

// runEpoch anchors run ids so they never read the wall clock.
var runEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// RunID names a run by its seed and length. Peers that replay the same run
// derive the same id; its timestamp is runEpoch plus the simulated ticks in ms.
func RunID(seed int64, ticks uint64) ulid.ULID {
	entropy := ulid.Monotonic(util.New(seed), 0)
	ms := ulid.Timestamp(runEpoch) + ticks
	return ulid.MustNew(ms, entropy)
}
