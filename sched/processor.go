package sched

import (
	"sort"
	"sync"
)

// A Processor maintains one owner's pending timed callbacks. It keeps a
// monotonic logical clock that its owner advances, a timeline of events
// ordered by due time, and a handle-keyed lookup used for targeted state
// changes. Create processors through Registry.NewProcessor and destroy them
// with Destroy when the owner goes away.
//
// Every event reachable from a processor is owned by that processor's
// events table; the timeline and the lookup are secondary indexes. All
// three structures are guarded by a single engine lock shared by every
// processor of the same registry, so arbitrary goroutines can schedule and
// cancel while one goroutine drains due events.
type Processor struct {
	registry *Registry
	inv      Invoker
	owner    Owner

	// mu is the process-wide engine lock, shared across the registry.
	mu *sync.Mutex

	clock  VTimeInMS
	seq    uint64
	events map[string]*Event
	queue  timeline
	lookup map[Handle]string

	destroyed bool
}

func newProcessor(registry *Registry, owner Owner) *Processor {
	return &Processor{
		registry: registry,
		inv:      registry.inv,
		owner:    owner,
		mu:       &registry.engineMu,
		events:   make(map[string]*Event),
		lookup:   make(map[Handle]string),
		queue:    make(timeline, 0),
	}
}

// Name returns the owner's name, or "global" for the owner-less processor.
func (p *Processor) Name() string {
	if p.owner == nil {
		return "global"
	}

	return p.owner.Name()
}

// Owner returns the domain object this processor serves, or nil for the
// global processor.
func (p *Processor) Owner() Owner {
	return p.owner
}

// AcceptHook registers a hook. Hooks are shared registry-wide: attaching
// through any processor makes the hook observe every processor of the same
// registry. Attach hooks before scheduling begins.
func (p *Processor) AcceptHook(hook Hook) {
	p.registry.AcceptHook(hook)
}

// CurrentTime returns the processor's logical clock.
func (p *Processor) CurrentTime() VTimeInMS {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clock
}

// Len returns the number of pending events.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.events)
}

// PendingEvents returns a snapshot of every pending event, earliest due
// first.
func (p *Processor) PendingEvents() []EventInfo {
	p.mu.Lock()
	infos := make([]EventInfo, 0, len(p.queue))
	for _, ev := range p.queue {
		infos = append(infos, ev.info())
	}
	p.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].DueAt < infos[j].DueAt
	})

	return infos
}

// Schedule registers a callback handle to fire after a delay drawn
// uniformly from [minDelay, maxDelay] logical milliseconds, repeating
// repeats times. repeats < 1 repeats forever. Scheduling a handle that
// already has a live event replaces that event: the stale timeline node is
// unlinked immediately and the handle reference carries over to the new
// event without a release.
//
// Schedule may be called from any goroutine, including from inside a
// callback body. On a destroyed processor it is a no-op.
func (p *Processor) Schedule(
	handle Handle,
	minDelay, maxDelay VTimeInMS,
	repeats int,
) {
	p.mu.Lock()

	if p.destroyed {
		p.mu.Unlock()
		return
	}

	var replacedInfo *EventInfo
	if oldID, live := p.lookup[handle]; live {
		old := p.mustFindOwned(oldID)
		p.unlinkLocked(old)
		info := old.info()
		replacedInfo = &info
	}

	ev := newEvent(handle, minDelay, maxDelay, repeats)
	p.insertLocked(ev)
	info := ev.info()

	p.mu.Unlock()

	if replacedInfo != nil {
		p.invokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosDrop,
			Item:   *replacedInfo,
			Detail: DropReplaced,
		})
	}

	p.invokeHook(HookCtx{Domain: p, Pos: HookPosSchedule, Item: info})
}

// insertLocked draws the event's delay and files it in all three
// structures, keyed by clock + delay.
func (p *Processor) insertLocked(ev *Event) {
	ev.drawDelay(p.registry.rng)
	ev.dueAt = p.clock + ev.delay

	p.seq++
	ev.seq = p.seq

	p.queue.insert(ev)
	p.events[ev.id] = ev
	p.lookup[ev.handle] = ev.id
}

// unlinkLocked removes an event from all three structures without touching
// its handle.
func (p *Processor) unlinkLocked(ev *Event) {
	p.queue.unlink(ev)
	delete(p.events, ev.id)
	if id, ok := p.lookup[ev.handle]; ok && id == ev.id {
		delete(p.lookup, ev.handle)
	}
}

// mustFindOwned resolves an event ID recorded in an index back to the
// owning table. A miss means the indexes and the owning table disagree,
// which is a programming error, not a runtime condition.
func (p *Processor) mustFindOwned(id string) *Event {
	ev, ok := p.events[id]
	if !ok {
		panic("sched: lookup references an event missing from the owning table")
	}

	return ev
}

// Advance adds elapsed to the processor's clock and fires every event that
// has come due, in due-time order with FIFO tie-break. Repeating events are
// rescheduled before their callback runs, so a callback cancelling its own
// handle removes the freshly rescheduled instance. Callbacks run on the
// calling goroutine with no scheduler lock held.
//
// The loop re-reads the earliest entry after every firing, so an event
// rescheduled with a zero delay fires again within the same Advance call.
// A zero-delay event that also repeats forever therefore never lets
// Advance return.
func (p *Processor) Advance(elapsed VTimeInMS) {
	p.mu.Lock()

	if p.destroyed {
		p.mu.Unlock()
		return
	}

	p.clock += elapsed

	for {
		ev := p.queue.peek()
		if ev == nil || ev.dueAt > p.clock {
			break
		}

		p.queue.popEarliest()

		if ev.state != StateErased {
			if id, ok := p.lookup[ev.handle]; ok && id == ev.id {
				delete(p.lookup, ev.handle)
			}
		}

		if ev.state == StateRun {
			p.fireLocked(ev)
			continue
		}

		p.discardLocked(ev)
	}

	p.mu.Unlock()
}

// fireLocked runs one due event. It enters holding the engine lock and
// returns holding it; the callback itself runs unlocked so it can call
// back into the scheduler.
func (p *Processor) fireLocked(ev *Event) {
	delayUsed := ev.delay
	repeatsToReport := ev.repeatsLeft
	info := ev.info()

	remove := ev.repeatsLeft == 1
	if !remove {
		// Reschedule before the callback runs, so cancellation from
		// inside the callback targets the fresh instance.
		p.insertLocked(ev)
	} else {
		// The final execution: take the record out of the owning table
		// before unlocking so a concurrent drain cannot release the
		// handle a second time.
		delete(p.events, ev.id)
	}

	if ev.repeatsLeft != 0 {
		ev.repeatsLeft--
	}

	p.mu.Unlock()

	p.invokeHook(HookCtx{Domain: p, Pos: HookPosBeforeInvoke, Item: info})
	p.inv.Invoke(ev.handle, delayUsed, repeatsToReport, p.owner)
	p.invokeHook(HookCtx{Domain: p, Pos: HookPosAfterInvoke, Item: info})

	if remove {
		p.releaseHandle(ev)
		p.invokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosDrop,
			Item:   info,
			Detail: DropExpired,
		})
	}

	p.mu.Lock()
}

// discardLocked drops a due event whose state forbids execution. Same
// locking shape as fireLocked.
func (p *Processor) discardLocked(ev *Event) {
	delete(p.events, ev.id)

	info := ev.info()
	reason := DropErased
	if ev.state == StateAbort {
		reason = DropAborted
	}

	p.mu.Unlock()

	if ev.state == StateAbort {
		p.invokeHook(HookCtx{Domain: p, Pos: HookPosSkip, Item: info})
	}

	p.releaseHandle(ev)
	p.invokeHook(HookCtx{Domain: p, Pos: HookPosDrop, Item: info, Detail: reason})

	p.mu.Lock()
}

// releaseHandle frees the event's handle reference through the invoker,
// unless the event is already logically gone or the runtime can no longer
// accept the release.
func (p *Processor) releaseHandle(ev *Event) {
	if ev.state == StateErased {
		return
	}

	if !p.inv.SystemLive() || !p.inv.HasContext() {
		return
	}

	p.inv.Release(ev.handle)
}

// SetStates sets the state of every pending event. StateErased also clears
// the lookup table immediately; the timeline entries remain and are swept
// by the next Advance.
func (p *Processor) SetStates(state EventState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ev := range p.events {
		ev.state = state
	}

	if state == StateErased {
		p.lookup = make(map[Handle]string)
	}
}

// SetState sets the state of the event registered under handle. Unknown
// handles are ignored. StateErased also removes the lookup entry
// immediately.
func (p *Processor) SetState(handle Handle, state EventState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.lookup[handle]
	if !ok {
		return
	}

	p.mustFindOwned(id).state = state

	if state == StateErased {
		delete(p.lookup, handle)
	}
}

// Cancel lazily cancels the event registered under handle: the event keeps
// its timeline slot but will be discarded instead of fired once due.
func (p *Processor) Cancel(handle Handle) {
	p.SetState(handle, StateAbort)
}

// CancelAll lazily cancels every pending event.
func (p *Processor) CancelAll() {
	p.SetStates(StateAbort)
}

// Destroy force-drains the processor and removes it from its registry.
// Every contained event's handle is released exactly once, regardless of
// due time, and no callback runs. Destroy is safe to call from any
// goroutine and is idempotent.
func (p *Processor) Destroy() {
	p.drainAll()

	if p.owner != nil {
		p.registry.deregister(p)
	}
}

// drainAll unconditionally deletes every pending event. Used by Destroy
// and by registry teardown.
func (p *Processor) drainAll() {
	p.mu.Lock()

	p.destroyed = true

	drained := make([]*Event, 0, len(p.queue))
	for len(p.queue) > 0 {
		drained = append(drained, p.queue.popEarliest())
	}

	p.events = make(map[string]*Event)
	p.lookup = make(map[Handle]string)

	p.mu.Unlock()

	for _, ev := range drained {
		p.releaseHandle(ev)
		p.invokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosDrop,
			Item:   ev.info(),
			Detail: DropDrained,
		})
	}
}

func (p *Processor) invokeHook(ctx HookCtx) {
	p.registry.InvokeHook(ctx)
}
