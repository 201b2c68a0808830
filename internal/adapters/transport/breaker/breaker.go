// Package breaker decorates a transport with a circuit breaker. While the
// circuit is open, sends are skipped and reported as circuit_open.
package breaker

import (
	"context"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	Enabled bool `yaml:"enabled"`
	// Failures is the number of consecutive transport failures that opens the circuit.
	Failures uint32 `yaml:"failures"`
	// Cooldown is how long the circuit stays open before a trial send.
	Cooldown time.Duration `yaml:"cooldown"`
}

func (c *Config) ApplyDefaults() {
	if c.Failures == 0 {
		c.Failures = 5
	}
	if c.Cooldown == 0 {
		c.Cooldown = time.Minute
	}
}

type Transport struct {
	inner ports.Transport
	cb    *gobreaker.TwoStepCircuitBreaker
}

// Wrap returns inner guarded by a breaker. State changes are logged on obs,
// which may be nil.
func Wrap(inner ports.Transport, cfg Config, obs ports.Observability) *Transport {
	cfg.ApplyDefaults()
	st := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.Failures
		},
	}
	if obs != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			obs.LogInfo("breaker_state",
				ports.F("transport", name),
				ports.F("from", from.String()),
				ports.F("to", to.String()))
		}
	}
	return &Transport{inner: inner, cb: gobreaker.NewTwoStepCircuitBreaker(st)}
}

func (t *Transport) Name() string { return t.inner.Name() }

// State exposes the breaker state, mostly for tests and stats.
func (t *Transport) State() gobreaker.State { return t.cb.State() }

// Send forwards to the inner transport unless the circuit is open. Only
// transport failures count against the circuit.
func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	done, err := t.cb.Allow()
	if err != nil {
		return domain.Failed(t.inner.Name(), rec.Location, 0, domain.ErrCircuitOpen)
	}
	o := t.inner.Send(ctx, rec)
	done(o.Success || o.Reason != domain.ReasonTransportFailure)
	return o
}

func (t *Transport) Open(ctx context.Context) error {
	if op, ok := t.inner.(ports.Opener); ok {
		return op.Open(ctx)
	}
	return nil
}

func (t *Transport) Ready() bool {
	if op, ok := t.inner.(ports.Opener); ok {
		return op.Ready()
	}
	return true
}

func (t *Transport) Close() error {
	if c, ok := t.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ ports.Transport = (*Transport)(nil)
	_ ports.Opener    = (*Transport)(nil)
)
