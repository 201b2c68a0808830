// Package bringup runs the one-time readiness phase before the telemetry
// loop starts: network link, clock sync and transport sessions.
package bringup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ghalamif/airdaq/internal/ports"
)

var ErrLinkDown = errors.New("network link is down")

type Config struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	// MaxElapsed bounds the retries of a single step.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
	// ReopenInterval is how often failed sessions are retried after start.
	ReopenInterval time.Duration `yaml:"reopen_interval"`
}

func (c *Config) ApplyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = time.Minute
	}
	if c.ReopenInterval <= 0 {
		c.ReopenInterval = 30 * time.Second
	}
}

// Step is one readiness action. A Required step that never succeeds aborts
// bring-up; optional steps are logged and skipped.
type Step struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) error
}

// Report lists the optional steps that did not succeed.
type Report struct {
	Failed []string
}

type Runner struct {
	cfg Config
	obs ports.Observability
}

func NewRunner(cfg Config, obs ports.Observability) *Runner {
	cfg.ApplyDefaults()
	return &Runner{cfg: cfg, obs: obs}
}

func (r *Runner) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.InitialInterval
	bo.MaxInterval = r.cfg.MaxInterval
	bo.MaxElapsedTime = r.cfg.MaxElapsed
	return backoff.WithContext(bo, ctx)
}

// Run executes steps in order.
func (r *Runner) Run(ctx context.Context, steps ...Step) (Report, error) {
	var rep Report
	for _, st := range steps {
		attempt := 0
		err := backoff.Retry(func() error {
			attempt++
			err := st.Run(ctx)
			if err != nil && r.obs != nil {
				r.obs.LogError("bringup_retry", err, ports.F("step", st.Name), ports.F("attempt", attempt))
			}
			return err
		}, r.newBackOff(ctx))

		if err == nil {
			if r.obs != nil {
				r.obs.LogInfo("bringup_ok", ports.F("step", st.Name), ports.F("attempts", attempt))
			}
			continue
		}
		if st.Required || ctx.Err() != nil {
			return rep, fmt.Errorf("bringup %s: %w", st.Name, err)
		}
		if r.obs != nil {
			r.obs.LogError("bringup_skipped", err, ports.F("step", st.Name))
		}
		rep.Failed = append(rep.Failed, st.Name)
	}
	return rep, nil
}

// WaitForLink succeeds once link reports up.
func WaitForLink(link ports.Link, required bool) Step {
	return Step{
		Name:     "network",
		Required: required,
		Run: func(context.Context) error {
			if !link.Up() {
				return ErrLinkDown
			}
			return nil
		},
	}
}

// SyncTime performs the first clock synchronization.
func SyncTime(s ports.Synchronizer, required bool) Step {
	return Step{Name: "time", Required: required, Run: s.Sync}
}

// OpenSession establishes a transport or source session.
func OpenSession(name string, op ports.Opener, required bool) Step {
	return Step{Name: "session:" + name, Required: required, Run: op.Open}
}
