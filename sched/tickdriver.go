package sched

import (
	"context"
	"sync"
	"time"
)

// A TickDriver advances a registry in near real time, converting elapsed
// wall-clock time into logical milliseconds at a fixed resolution. The
// driver is optional: embedders that already own a main loop can call
// Registry.AdvanceAll themselves.
type TickDriver struct {
	registry *Registry
	period   time.Duration

	pauseLock sync.Mutex
	paused    bool
	last      time.Time
}

// NewTickDriver creates a driver that advances registry once per period.
// Periods below one millisecond are raised to one millisecond.
func NewTickDriver(registry *Registry, period time.Duration) *TickDriver {
	if period < time.Millisecond {
		period = time.Millisecond
	}

	return &TickDriver{
		registry: registry,
		period:   period,
	}
}

// Run pumps ticks until ctx is cancelled. It blocks and always returns
// ctx's error.
func (d *TickDriver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	d.pauseLock.Lock()
	d.last = time.Now()
	d.pauseLock.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick consumes the whole milliseconds that passed since the previous
// tick, carrying the sub-millisecond remainder forward so no time is lost
// to truncation.
func (d *TickDriver) tick() {
	d.pauseLock.Lock()

	if d.paused {
		d.pauseLock.Unlock()
		return
	}

	ms := time.Since(d.last) / time.Millisecond
	d.last = d.last.Add(ms * time.Millisecond)

	d.pauseLock.Unlock()

	if ms > 0 {
		d.registry.AdvanceAll(VTimeInMS(ms))
	}
}

// Pause stops the flow of logical time. Events keep their due times and
// fire after Continue, once the clock catches up.
func (d *TickDriver) Pause() {
	d.pauseLock.Lock()
	d.paused = true
	d.pauseLock.Unlock()
}

// Continue resumes the flow of logical time. Wall-clock time spent paused
// is not replayed.
func (d *TickDriver) Continue() {
	d.pauseLock.Lock()
	d.paused = false
	d.last = time.Now()
	d.pauseLock.Unlock()
}

// Paused reports whether the driver is currently paused.
func (d *TickDriver) Paused() bool {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	return d.paused
}
