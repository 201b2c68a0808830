package pipeline

import (
	"math"
	"testing"
)

func TestGateFiresImmediately(t *testing.T) {
	g := NewGate(10_000)
	if !g.ShouldFire(1234) {
		t.Fatalf("expected first check to fire")
	}
	if g.LastFired() != 1234 {
		t.Fatalf("expected lastFired 1234, got %d", g.LastFired())
	}
}

func TestGateHoldsWithinInterval(t *testing.T) {
	g := NewGate(100)
	g.ShouldFire(1000)

	for _, now := range []uint32{1000, 1001, 1050, 1099} {
		if g.ShouldFire(now) {
			t.Fatalf("gate fired at %d, only %d elapsed", now, now-1000)
		}
	}
	if g.LastFired() != 1000 {
		t.Fatalf("non-firing checks must not move lastFired, got %d", g.LastFired())
	}
}

func TestGateFiresOncePerInterval(t *testing.T) {
	g := NewGate(100)
	g.ShouldFire(1000)

	if !g.ShouldFire(1100) {
		t.Fatalf("expected fire at exactly one interval")
	}
	if g.ShouldFire(1100) {
		t.Fatalf("gate must not fire twice on the same tick")
	}
	if g.LastFired() != 1100 {
		t.Fatalf("expected lastFired 1100, got %d", g.LastFired())
	}
	if !g.ShouldFire(1350) {
		t.Fatalf("expected fire after a late check")
	}
}

func TestGateAcrossWraparound(t *testing.T) {
	g := NewGate(20)
	g.ShouldFire(math.MaxUint32 - 5)

	if got := g.Elapsed(10); got != 16 {
		t.Fatalf("expected elapsed 16 across wraparound, got %d", got)
	}
	if g.ShouldFire(10) {
		t.Fatalf("gate fired after 16 ticks with a 20 tick interval")
	}
	if !g.ShouldFire(14) {
		t.Fatalf("expected fire after 20 ticks across wraparound")
	}
}

func TestGateZeroIntervalNeverRefiresSameTick(t *testing.T) {
	g := NewGate(0)
	if g.Interval() != 1 {
		t.Fatalf("expected interval clamp to 1, got %d", g.Interval())
	}
	g.ShouldFire(5)
	if g.ShouldFire(5) {
		t.Fatalf("gate fired twice on tick 5")
	}
	if !g.ShouldFire(6) {
		t.Fatalf("expected fire on next tick")
	}
}
