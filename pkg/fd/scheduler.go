// Package fd provides the finite-domain layer of the Clafer compiler.
// This file implements the propagation scheduler.
//
// The scheduler keeps one FIFO queue per Priority and a queued flag per
// propagator. The Store reports every successful mutation through
// onChange; the scheduler enqueues each propagator whose watch mask matches
// the event. Propagate pops the cheapest ready propagator until no queue is
// left (fixpoint), a propagator fails (contradiction), or the limiter
// reports an exhausted budget.
package fd

import (
	"context"
)

type schedEntry struct {
	p          Propagator
	prio       Priority
	queued     bool
	idempotent bool
}

type watcher struct {
	prop int
	mask Event
}

// Scheduler runs propagators to a global fixpoint.
type Scheduler struct {
	store    *Store
	entries  []*schedEntry
	watchers map[varRef][]watcher
	queues   [numPriorities][]int
	heads    [numPriorities]int
	current  int
	steps    int

	// limiter is consulted once per propagator execution.
	limiter func() error
}

// NewScheduler attaches a scheduler to st. A store has at most one scheduler.
func NewScheduler(st *Store) *Scheduler {
	sc := &Scheduler{
		store:    st,
		watchers: make(map[varRef][]watcher),
		current:  -1,
	}
	st.listener = sc
	return sc
}

// Post registers p and enqueues it for its first run.
func (sc *Scheduler) Post(p Propagator) {
	idx := len(sc.entries)
	e := &schedEntry{p: p, prio: p.Priority()}
	if ip, ok := p.(Idempotent); ok {
		e.idempotent = ip.Idempotent()
	}
	sc.entries = append(sc.entries, e)
	for _, w := range p.Watches() {
		r := w.Var.ref()
		sc.watchers[r] = append(sc.watchers[r], watcher{prop: idx, mask: w.Mask})
	}
	sc.enqueue(idx)
}

// Propagators returns every posted propagator in posting order.
func (sc *Scheduler) Propagators() []Propagator {
	out := make([]Propagator, len(sc.entries))
	for i, e := range sc.entries {
		out[i] = e.p
	}
	return out
}

// Steps returns how many propagator executions have run so far.
func (sc *Scheduler) Steps() int { return sc.steps }

// EnqueueAll schedules every propagator, as after a restart.
func (sc *Scheduler) EnqueueAll() {
	for i := range sc.entries {
		sc.enqueue(i)
	}
}

func (sc *Scheduler) enqueue(idx int) {
	e := sc.entries[idx]
	if e.queued {
		return
	}
	e.queued = true
	sc.queues[e.prio] = append(sc.queues[e.prio], idx)
}

func (sc *Scheduler) onChange(r varRef, ev Event) {
	for _, w := range sc.watchers[r] {
		if w.mask&ev == 0 {
			continue
		}
		if w.prop == sc.current && sc.entries[w.prop].idempotent {
			continue
		}
		sc.enqueue(w.prop)
	}
}

// Flush drops every pending propagator. Called after a contradiction,
// before the store is rolled back.
func (sc *Scheduler) Flush() {
	for p := range sc.queues {
		for _, idx := range sc.queues[p][sc.heads[p]:] {
			sc.entries[idx].queued = false
		}
		sc.queues[p] = sc.queues[p][:0]
		sc.heads[p] = 0
	}
}

// Pending reports how many propagators are queued.
func (sc *Scheduler) Pending() int {
	n := 0
	for p := range sc.queues {
		n += len(sc.queues[p]) - sc.heads[p]
	}
	return n
}

func (sc *Scheduler) pop() int {
	for p := range sc.queues {
		q, h := sc.queues[p], sc.heads[p]
		if h == len(q) {
			continue
		}
		idx := q[h]
		if h+1 == len(q) {
			// Drained: rewind so the backing array is reused.
			sc.queues[p], sc.heads[p] = q[:0], 0
		} else {
			sc.heads[p] = h + 1
		}
		sc.entries[idx].queued = false
		return idx
	}
	return -1
}

// Propagate runs to fixpoint. On contradiction the queue is flushed and the
// *ContradictionError returned; the caller must roll the store back. A
// limiter failure (or a cancelled ctx) is returned as *LimitReachedError.
func (sc *Scheduler) Propagate(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			sc.Flush()
			return &LimitReachedError{Kind: LimitCancelled, Cause: err}
		}
		if sc.limiter != nil {
			if err := sc.limiter(); err != nil {
				sc.Flush()
				return err
			}
		}
		idx := sc.pop()
		if idx < 0 {
			return nil
		}
		sc.steps++
		sc.current = idx
		err := sc.entries[idx].p.Propagate(sc.store)
		sc.current = -1
		if err != nil {
			sc.Flush()
			return err
		}
	}
}
