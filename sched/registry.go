package sched

import (
	"math/rand"
	"sync"
	"time"
)

// A Registry tracks every live Processor of one scheduling domain and owns
// the engine lock they share. It also holds the global processor for
// events that belong to no particular owner, and the hook list that
// observes all of them.
//
// Membership changes, broadcasts, and teardown are serialized by a
// registration guard that is separate from the engine lock. The guard is
// always acquired first, so a broadcast can lock each member processor
// without deadlocking against concurrent NewProcessor or Destroy calls.
type Registry struct {
	HookableBase

	inv Invoker

	// rng draws randomized delays. Guarded by the engine lock.
	rng *rand.Rand

	// engineMu is the engine lock shared by every processor created from
	// this registry.
	engineMu sync.Mutex

	// guard serializes membership reads and writes.
	guard    sync.Mutex
	procs    map[*Processor]struct{}
	global   *Processor
	shutdown bool
}

// NewRegistry creates a registry whose processors deliver callbacks
// through inv. The invoker must not be nil.
func NewRegistry(inv Invoker) *Registry {
	if inv == nil {
		panic("sched: registry requires an invoker")
	}

	r := &Registry{
		inv:   inv,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		procs: make(map[*Processor]struct{}),
	}
	r.global = newProcessor(r, nil)

	return r
}

// WithSeed reseeds the delay randomizer, making randomized delays
// reproducible. Call it before any event is scheduled.
func (r *Registry) WithSeed(seed int64) *Registry {
	r.rng = rand.New(rand.NewSource(seed))
	return r
}

// Global returns the owner-less processor for cross-owner events.
func (r *Registry) Global() *Processor {
	return r.global
}

// NewProcessor creates and registers a processor for owner. Owner must not
// be nil; owner-less events belong on the Global processor. After Shutdown
// the returned processor is inert: it accepts no events and fires nothing.
func (r *Registry) NewProcessor(owner Owner) *Processor {
	if owner == nil {
		panic("sched: processor owner must not be nil, use Global instead")
	}

	p := newProcessor(r, owner)

	r.guard.Lock()
	defer r.guard.Unlock()

	if r.shutdown {
		p.destroyed = true
		return p
	}

	r.procs[p] = struct{}{}

	return p
}

func (r *Registry) deregister(p *Processor) {
	r.guard.Lock()
	defer r.guard.Unlock()

	delete(r.procs, p)
}

// Processors returns a snapshot of all live processors, the global one
// last.
func (r *Registry) Processors() []*Processor {
	r.guard.Lock()
	defer r.guard.Unlock()

	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []*Processor {
	procs := make([]*Processor, 0, len(r.procs)+1)
	for p := range r.procs {
		procs = append(procs, p)
	}

	return append(procs, r.global)
}

// CurrentTime returns the global processor's clock.
func (r *Registry) CurrentTime() VTimeInMS {
	return r.global.CurrentTime()
}

// Pending returns the total number of pending events across all
// processors.
func (r *Registry) Pending() int {
	r.guard.Lock()
	procs := r.snapshotLocked()
	r.guard.Unlock()

	n := 0
	for _, p := range procs {
		n += p.Len()
	}

	return n
}

// AdvanceAll advances every processor's clock by the same elapsed time and
// fires whatever comes due. Membership is snapshotted first, so callbacks
// may create or destroy processors; processors created during the call are
// picked up by the next one.
func (r *Registry) AdvanceAll(elapsed VTimeInMS) {
	r.guard.Lock()
	procs := r.snapshotLocked()
	r.guard.Unlock()

	for _, p := range procs {
		p.Advance(elapsed)
	}
}

// SetStates sets the state of every pending event in every processor,
// including the global one.
func (r *Registry) SetStates(state EventState) {
	r.guard.Lock()
	defer r.guard.Unlock()

	for _, p := range r.snapshotLocked() {
		p.SetStates(state)
	}
}

// SetState sets the state of the event registered under handle, in
// whichever processor holds it. Processors that do not know the handle
// ignore the call.
func (r *Registry) SetState(handle Handle, state EventState) {
	r.guard.Lock()
	defer r.guard.Unlock()

	for _, p := range r.snapshotLocked() {
		p.SetState(handle, state)
	}
}

// Shutdown force-drains every processor and the global one, releasing each
// contained handle exactly once without firing callbacks. Processors stay
// with their owners but become inert. Shutdown is idempotent, and the
// registry accepts no new processors afterwards.
func (r *Registry) Shutdown() {
	r.guard.Lock()
	defer r.guard.Unlock()

	if r.shutdown {
		return
	}

	r.shutdown = true

	for p := range r.procs {
		p.drainAll()
	}

	r.global.drainAll()
}
