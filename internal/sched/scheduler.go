// Package sched orders deferred callbacks by simulation time.
//
// Callbacks are keyed by (due, seq): due is absolute simulation time and seq is a
// per-scheduler creation counter, so equal due times fire in creation order.
// Nothing here reads the wall clock.
package sched

import (
	"container/heap"
	"fmt"
	"io"
	"log/slog"
	"math"

	"battlecore/internal/ecs"
)

// Action is a deferred effect. A returned error is logged and swallowed.
type Action func() error

type callback struct {
	due   float64
	seq   uint64
	owner ecs.Entity
	epoch uint32
	fn    Action
}

type queue []*callback

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*callback)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	cb := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return cb
}

type Stats struct {
	Scheduled uint64
	Fired     uint64
	Faulted   uint64
}

type Scheduler struct {
	now   float64
	seq   uint64
	q     queue
	owner map[ecs.Entity]int
	epoch map[ecs.Entity]uint32
	stats Stats
	log   *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{owner: map[ecs.Entity]int{}, epoch: map[ecs.Entity]uint32{}, log: log}
}

// Now is the time passed to the most recent Tick.
func (s *Scheduler) Now() float64 { return s.now }

func (s *Scheduler) Len() int { return len(s.q) }

// PendingFor counts callbacks still queued for owner since its last Release.
func (s *Scheduler) PendingFor(owner ecs.Entity) int { return s.owner[owner] }

// Release drops owner's per-entity state, as when its entity is destroyed.
// Callbacks already queued still fire but no longer count toward a recycled id.
func (s *Scheduler) Release(owner ecs.Entity) {
	delete(s.owner, owner)
	s.epoch[owner]++
}

func (s *Scheduler) Stats() Stats { return s.stats }

// Schedule queues fn to run delay seconds after Now and returns its sequence number.
// Negative and NaN delays are treated as zero.
func (s *Scheduler) Schedule(fn Action, delay float64, owner ecs.Entity) uint64 {
	if math.IsNaN(delay) || delay < 0 {
		delay = 0
	}
	s.seq++
	cb := &callback{due: s.now + delay, seq: s.seq, owner: owner, epoch: s.epoch[owner], fn: fn}
	heap.Push(&s.q, cb)
	s.owner[owner]++
	s.stats.Scheduled++
	return cb.seq
}

// Tick fires every callback due at or before now in (due, seq) order, including
// callbacks scheduled by other callbacks during this call. It returns the count fired.
func (s *Scheduler) Tick(now float64) int {
	s.now = now
	fired := 0
	for len(s.q) > 0 && s.q[0].due <= now {
		cb := heap.Pop(&s.q).(*callback)
		if cb.epoch == s.epoch[cb.owner] {
			if n := s.owner[cb.owner] - 1; n > 0 {
				s.owner[cb.owner] = n
			} else {
				delete(s.owner, cb.owner)
			}
		}
		s.invoke(cb)
		fired++
	}
	return fired
}

func (s *Scheduler) invoke(cb *callback) {
	s.stats.Fired++
	err := s.call(cb)
	if err == nil {
		return
	}
	s.stats.Faulted++
	s.log.Error("scheduled callback failed",
		"owner", cb.owner, "seq", cb.seq, "due", cb.due, "now", s.now, "err", err)
}

func (s *Scheduler) call(cb *callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if cb.fn == nil {
		return nil
	}
	return cb.fn()
}
