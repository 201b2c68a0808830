package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

// Route binds a transport to the sensors it uploads.
type Route struct {
	Transport ports.Transport
	// Sensors limits the route to these IDs; empty means every channel.
	Sensors []string
	// PerSensor sends one record per reading instead of one per cycle.
	PerSensor bool
	// Timeout bounds each send; zero leaves it to the transport.
	Timeout time.Duration
}

func (r Route) records(rec *domain.Record) []*domain.Record {
	sel := rec.Select(r.Sensors)
	if len(sel.Readings) == 0 {
		return nil
	}
	if r.PerSensor {
		return sel.PerSensor()
	}
	return []*domain.Record{sel}
}

// LoopDeps are the collaborators of a TelemetryLoop.
type LoopDeps struct {
	Gate    *Gate
	Ticks   ports.TickSource
	Sampler *Sampler
	Clock   ports.TimeSource
	// Link may be nil, in which case the network is assumed up.
	Link   ports.Link
	Meta   domain.Meta
	Routes []Route
	Obs    ports.Observability
}

// TelemetryLoop runs gate → sample → build → send on every tick. Apart from
// the gate it keeps no state between cycles.
type TelemetryLoop struct {
	deps LoopDeps
}

func NewTelemetryLoop(deps LoopDeps) (*TelemetryLoop, error) {
	switch {
	case deps.Gate == nil:
		return nil, errors.New("telemetry loop: gate is nil")
	case deps.Ticks == nil:
		return nil, errors.New("telemetry loop: tick source is nil")
	case deps.Sampler == nil:
		return nil, errors.New("telemetry loop: sampler is nil")
	case deps.Clock == nil:
		return nil, errors.New("telemetry loop: time source is nil")
	case deps.Obs == nil:
		return nil, errors.New("telemetry loop: observability is nil")
	}
	for i, r := range deps.Routes {
		if r.Transport == nil {
			return nil, fmt.Errorf("telemetry loop: route %d has no transport", i)
		}
	}
	return &TelemetryLoop{deps: deps}, nil
}

// Tick runs one scheduler step and reports whether the gate fired. It only
// blocks inside transport sends.
func (l *TelemetryLoop) Tick(ctx context.Context) bool {
	d := l.deps
	if !d.Gate.ShouldFire(d.Ticks.Millis()) {
		return false
	}
	d.Obs.IncCounter("airdaq_cycles_total", 1)

	res := d.Sampler.Sample(ctx)
	if !res.Valid() {
		d.Obs.IncCounter("airdaq_samples_invalid_total", 1)
		d.Obs.LogError("sample_invalid", res.Err, ports.F("channel", res.Channel))
		return true
	}

	rec := payload.Build(res.Readings, d.Clock.Now(), d.Meta)

	up := d.Link == nil || d.Link.Up()
	if up {
		d.Obs.SetGauge("airdaq_link_up", 1)
	} else {
		d.Obs.SetGauge("airdaq_link_up", 0)
	}

	for _, route := range d.Routes {
		for _, out := range route.records(rec) {
			if !up {
				l.report(domain.Failed(route.Transport.Name(), strings.Join(out.IDs(), ","), 0, domain.ErrNotConnected), 0)
				continue
			}
			l.send(ctx, route, out)
		}
	}
	return true
}

func (l *TelemetryLoop) send(ctx context.Context, route Route, rec *domain.Record) {
	if route.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, route.Timeout)
		defer cancel()
	}
	start := time.Now()
	o := route.Transport.Send(ctx, rec)
	l.report(o, time.Since(start).Seconds())
}

// Run drives Tick every poll interval until ctx is cancelled.
func (l *TelemetryLoop) Run(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	l.Tick(ctx)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

func (l *TelemetryLoop) report(o domain.UploadOutcome, seconds float64) {
	obs := l.deps.Obs
	obs.RecordOutcome(o, seconds)

	fields := []ports.Field{
		ports.F("transport", o.Transport),
		ports.F("target", o.Target),
		ports.F("reason", string(o.Reason)),
	}
	if o.Status != 0 {
		fields = append(fields, ports.F("status", o.Status))
	}
	if o.Success {
		obs.LogInfo("upload_ok", fields...)
		return
	}
	err := o.Err
	if err == nil {
		err = errors.New(string(o.Reason))
	}
	obs.LogError("upload_failed", err, fields...)
}
