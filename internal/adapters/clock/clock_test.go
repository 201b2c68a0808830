package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
)

func TestNTPClockUnknownUntilSynced(t *testing.T) {
	c := NewNTPClock("pool.ntp.org", time.Hour, time.Hour, time.Second)
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return nil, errors.New("network unreachable")
	}

	if c.Now().Known() {
		t.Fatalf("expected unknown time before sync")
	}
	if err := c.Sync(context.Background()); err == nil {
		t.Fatalf("expected sync error")
	}
	if c.Synced() || c.Now().Known() {
		t.Fatalf("failed sync must not fabricate a time")
	}
}

func TestNTPClockAppliesOffsetAndZone(t *testing.T) {
	c := NewNTPClock("pool.ntp.org", time.Hour, time.Hour, time.Second)
	local := time.Date(2023, 12, 31, 21, 59, 58, 0, time.UTC)
	c.now = func() time.Time { return local }
	c.query = func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		if host != "pool.ntp.org" {
			t.Fatalf("unexpected host %s", host)
		}
		return &ntp.Response{
			Stratum:       2,
			Time:          local,
			ReferenceTime: local,
			ClockOffset:   2 * time.Second,
		}, nil
	}

	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	ts := c.Now()
	if got := ts.Format(); got != "2024-01-01 00:00:00" {
		t.Fatalf("expected UTC+2 corrected time, got %q", got)
	}
	if sec, _ := ts.Unix(); sec != 1704060000 {
		t.Fatalf("unexpected epoch %d", sec)
	}
}

func TestNTPClockRejectsKissOfDeath(t *testing.T) {
	c := NewNTPClock("pool.ntp.org", 0, 0, time.Second)
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return &ntp.Response{Stratum: 0}, nil
	}
	if err := c.Sync(context.Background()); err == nil {
		t.Fatalf("expected validation error for stratum 0")
	}
	if c.Synced() {
		t.Fatalf("invalid response must not mark the clock synced")
	}
}

func TestNTPClockHonorsCancelledContext(t *testing.T) {
	c := NewNTPClock("pool.ntp.org", 0, 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Sync(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMonotonicWraps(t *testing.T) {
	m := NewMonotonicAt(^uint32(0))
	time.Sleep(3 * time.Millisecond)
	if got := m.Millis(); got > 1000 {
		t.Fatalf("expected counter to wrap to a small value, got %d", got)
	}
}

func TestLocalClockIsAlwaysKnown(t *testing.T) {
	ts := NewLocal(2*time.Hour, 0).Now()
	if !ts.Known() {
		t.Fatalf("local clock must always be known")
	}
	at, _ := ts.Time()
	if _, off := at.Zone(); off != 7200 {
		t.Fatalf("expected +02:00 zone, got offset %d", off)
	}
}
