package pipeline

// Gate paces periodic work off a free-running millisecond counter. Elapsed
// time is computed with uint32 subtraction, so a counter that wraps past
// its maximum still yields the correct duration.
//
// A Gate is owned by a single goroutine and is not safe for concurrent use.
type Gate struct {
	lastFired uint32
	interval  uint32
	primed    bool
}

// NewGate returns a gate that fires on its first check and then at most once
// per intervalMs. An interval below 1ms is raised to 1ms so the gate cannot
// fire twice on the same tick value.
func NewGate(intervalMs uint32) *Gate {
	if intervalMs == 0 {
		intervalMs = 1
	}
	return &Gate{interval: intervalMs}
}

// ShouldFire reports whether the interval has elapsed since the last fire and,
// if so, records now as the new fire time. It has no side effect otherwise.
func (g *Gate) ShouldFire(now uint32) bool {
	if !g.primed {
		g.primed = true
		g.lastFired = now
		return true
	}
	if g.Elapsed(now) < g.interval {
		return false
	}
	g.lastFired = now
	return true
}

// Elapsed returns the wraparound-safe ticks since the last fire.
func (g *Gate) Elapsed(now uint32) uint32 {
	return now - g.lastFired
}

// LastFired returns the tick of the last fire.
func (g *Gate) LastFired() uint32 { return g.lastFired }

// Interval returns the configured interval in ticks.
func (g *Gate) Interval() uint32 { return g.interval }
