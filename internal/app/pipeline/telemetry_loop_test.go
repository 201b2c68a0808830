package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ghalamif/airdaq/internal/domain"
)

type loopFixture struct {
	ticks *manualTicks
	link  *linkState
	obs   *mockObs
	docs  *recordingTransport
	rest  *recordingTransport
	touch *stubSource
	loop  *TelemetryLoop
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	f := &loopFixture{
		ticks: &manualTicks{now: 500},
		link:  &linkState{up: true},
		obs:   newMockObs(),
		docs:  &recordingTransport{name: "docstore"},
		rest:  &recordingTransport{name: "rest"},
		touch: &stubSource{value: 40},
	}
	sampler, err := NewSampler([]Channel{
		{ID: "Hall", Label: "Hall sensor", Kind: domain.KindHall, Source: &stubSource{value: 512}},
		{ID: "Touch", Label: "Touch sensor", Kind: domain.KindTouch, Source: f.touch},
	})
	if err != nil {
		t.Fatalf("sampler: %v", err)
	}
	f.loop, err = NewTelemetryLoop(LoopDeps{
		Gate:    NewGate(10_000),
		Ticks:   f.ticks,
		Sampler: sampler,
		Clock:   fixedClock{ts: domain.At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
		Link:    f.link,
		Meta:    domain.Meta{Location: "Living Room"},
		Routes: []Route{
			{Transport: f.docs, PerSensor: true},
			{Transport: f.rest, Sensors: []string{"Touch"}},
		},
		Obs: f.obs,
	})
	if err != nil {
		t.Fatalf("loop: %v", err)
	}
	return f
}

func TestTickSendsPerRoute(t *testing.T) {
	f := newLoopFixture(t)

	if !f.loop.Tick(context.Background()) {
		t.Fatalf("expected first tick to fire")
	}
	if len(f.docs.records) != 2 {
		t.Fatalf("expected one docstore record per sensor, got %d", len(f.docs.records))
	}
	if f.docs.records[0].Readings[0].ID != "Hall" || f.docs.records[1].Readings[0].ID != "Touch" {
		t.Fatalf("unexpected per-sensor split")
	}
	if len(f.rest.records) != 1 || len(f.rest.records[0].Readings) != 1 || f.rest.records[0].Readings[0].ID != "Touch" {
		t.Fatalf("rest route should get a single Touch-only record, got %+v", f.rest.records)
	}
	if got := f.docs.records[0].Time.Format(); got != "2024-01-01 00:00:00" {
		t.Fatalf("record not stamped, got %q", got)
	}
	if len(f.obs.outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(f.obs.outcomes))
	}
}

func TestTickIdleWithinInterval(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Tick(context.Background())

	f.ticks.now += 9_999
	if f.loop.Tick(context.Background()) {
		t.Fatalf("tick fired inside the interval")
	}
	if len(f.docs.records) != 2 {
		t.Fatalf("idle tick must not send")
	}

	f.ticks.now += 1
	if !f.loop.Tick(context.Background()) {
		t.Fatalf("expected fire once the interval elapsed")
	}
	if f.obs.counters["airdaq_cycles_total"] != 2 {
		t.Fatalf("expected 2 cycles, got %v", f.obs.counters["airdaq_cycles_total"])
	}
}

func TestTickInvalidSampleSkipsAllTransports(t *testing.T) {
	f := newLoopFixture(t)
	f.touch.value = math.NaN()

	if !f.loop.Tick(context.Background()) {
		t.Fatalf("expected gate to fire")
	}
	if len(f.docs.records)+len(f.rest.records) != 0 {
		t.Fatalf("invalid sample must not reach any transport")
	}
	if f.obs.counters["airdaq_samples_invalid_total"] != 1 {
		t.Fatalf("expected invalid sample to be counted")
	}
	if len(f.obs.errors) != 1 || f.obs.errors[0] != "sample_invalid" {
		t.Fatalf("expected sample_invalid log, got %v", f.obs.errors)
	}
}

func TestTickFailureDoesNotBlockOtherSends(t *testing.T) {
	f := newLoopFixture(t)
	f.docs.fail = errors.New("boom")

	f.loop.Tick(context.Background())

	if len(f.docs.records) != 2 {
		t.Fatalf("expected both docstore sends to be attempted, got %d", len(f.docs.records))
	}
	if len(f.rest.records) != 1 {
		t.Fatalf("rest send blocked by docstore failure")
	}
	var failed int
	for _, o := range f.obs.outcomes {
		if !o.Success {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed outcomes, got %d", failed)
	}

	f.docs.fail = nil
	f.ticks.now += 10_000
	f.loop.Tick(context.Background())
	if len(f.docs.records) != 4 {
		t.Fatalf("failed records must not be retried; expected 4 sends total, got %d", len(f.docs.records))
	}
}

func TestTickLinkDownSkipsSends(t *testing.T) {
	f := newLoopFixture(t)
	f.link.up = false

	f.loop.Tick(context.Background())

	if len(f.docs.records)+len(f.rest.records) != 0 {
		t.Fatalf("no transport call expected while link is down")
	}
	if len(f.obs.outcomes) != 3 {
		t.Fatalf("expected a not_connected outcome per record, got %d", len(f.obs.outcomes))
	}
	for _, o := range f.obs.outcomes {
		if o.Reason != domain.ReasonNotConnected {
			t.Fatalf("expected not_connected, got %s", o.Reason)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx, time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestNewTelemetryLoopValidatesDeps(t *testing.T) {
	if _, err := NewTelemetryLoop(LoopDeps{}); err == nil {
		t.Fatalf("expected error for empty deps")
	}
}

type deadlineTransport struct {
	deadline    time.Time
	hasDeadline bool
}

func (d *deadlineTransport) Name() string { return "deadline" }

func (d *deadlineTransport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	d.deadline, d.hasDeadline = ctx.Deadline()
	return domain.Succeeded("deadline", rec.Location, 0)
}

func TestTickAppliesRouteTimeout(t *testing.T) {
	sampler, err := NewSampler([]Channel{{ID: "Hall", Source: &stubSource{value: 1}}})
	if err != nil {
		t.Fatalf("sampler: %v", err)
	}
	bounded := &deadlineTransport{}
	unbounded := &deadlineTransport{}
	loop, err := NewTelemetryLoop(LoopDeps{
		Gate:    NewGate(1000),
		Ticks:   &manualTicks{},
		Sampler: sampler,
		Clock:   fixedClock{ts: domain.Unknown},
		Routes: []Route{
			{Transport: bounded, Timeout: 2 * time.Second},
			{Transport: unbounded},
		},
		Obs: newMockObs(),
	})
	if err != nil {
		t.Fatalf("loop: %v", err)
	}

	start := time.Now()
	loop.Tick(context.Background())

	if !bounded.hasDeadline || bounded.deadline.Sub(start) > 2*time.Second+time.Second {
		t.Fatalf("expected a ~2s deadline, got %v (set=%v)", bounded.deadline.Sub(start), bounded.hasDeadline)
	}
	if unbounded.hasDeadline {
		t.Fatalf("route without timeout must not get a deadline")
	}
}
