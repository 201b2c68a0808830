package airdaq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/airdaq/internal/adapters/clock"
	"github.com/ghalamif/airdaq/internal/adapters/netlink"
	"github.com/ghalamif/airdaq/internal/adapters/observability"
	"github.com/ghalamif/airdaq/internal/app/bringup"
	"github.com/ghalamif/airdaq/internal/app/config"
	"github.com/ghalamif/airdaq/internal/app/pipeline"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/logging"
	"github.com/ghalamif/airdaq/internal/ports"
)

// Version is stamped into JSON logs. Release builds override it with -ldflags.
var Version = "dev"

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sources       map[string]SensorSource
	routes        []Route
	timeSource    TimeSource
	ticks         TickSource
	link          Link
	observability Observability
	logger        *slog.Logger
	registry      *prometheus.Registry
}

// WithSources replaces the configured driver of the sensors named in the map
// (keyed by sensor ID). Sensors not in the map keep their configured driver.
func WithSources(sources map[string]SensorSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		if o.sources == nil {
			o.sources = make(map[string]SensorSource, len(sources))
		}
		for id, src := range sources {
			o.sources[id] = src
		}
	}
}

// WithTransports replaces the configured transports with caller-built routes.
func WithTransports(routes ...Route) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.routes = append(o.routes, routes...)
	}
}

// WithTimeSource overrides the NTP-backed wall clock.
func WithTimeSource(ts TimeSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.timeSource = ts
	}
}

// WithTickSource overrides the monotonic millisecond counter that drives the gate.
func WithTickSource(ts TickSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.ticks = ts
	}
}

// WithLink overrides network link detection.
func WithLink(l Link) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.link = l
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger replaces the logger built from the log config section.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// Runtime wires sources → sampler → telemetry loop → transports and exposes
// lifecycle hooks for embedding airdaq inside any Go service.
type Runtime struct {
	cfg      *Config
	obs      ports.Observability
	registry *prometheus.Registry
	loop     *pipeline.TelemetryLoop
	routes   []pipeline.Route
	sensors  []string
	link     ports.Link
	syncer   ports.Synchronizer
	sessions []session
	closers  []io.Closer

	metricsSrv *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

// NewRuntime builds the default adapters from cfg: configured sensor drivers
// and transports, NTP time, interface link detection and Prometheus
// observability. RuntimeOption values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Device.Location == "" {
		return nil, fmt.Errorf("device.location is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	reg := overrides.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	obs := overrides.observability
	if obs == nil {
		logger := overrides.logger
		if logger == nil {
			var err error
			logger, err = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format, "airdaq", Version)
			if err != nil {
				return nil, err
			}
		}
		obs = observability.NewPromObs(logger, reg)
	}

	w := &wiring{cfg: cfg, obs: obs}
	rt, err := newRuntime(cfg, w, overrides, obs, reg)
	if err != nil {
		_ = closeAll(w.closers)
		return nil, err
	}
	return rt, nil
}

func newRuntime(cfg *Config, w *wiring, overrides runtimeOverrides, obs ports.Observability, reg *prometheus.Registry) (*Runtime, error) {
	channels, err := w.channels(overrides.sources)
	if err != nil {
		return nil, err
	}
	sampler, err := pipeline.NewSampler(channels)
	if err != nil {
		return nil, err
	}

	routes := overrides.routes
	if len(routes) == 0 {
		routes, err = w.routes()
		if err != nil {
			return nil, err
		}
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("at least one transport is required")
	}

	var syncer ports.Synchronizer
	ts := overrides.timeSource
	if ts == nil {
		if cfg.Time.Disabled {
			ts = clock.NewLocal(cfg.Time.UTCOffset, cfg.Time.DSTOffset)
		} else {
			ntpClock := clock.NewNTPClock(cfg.Time.Server, cfg.Time.UTCOffset, cfg.Time.DSTOffset, cfg.Time.Timeout)
			ts = ntpClock
			syncer = ntpClock
		}
	} else if s, ok := ts.(ports.Synchronizer); ok {
		syncer = s
	}

	ticks := overrides.ticks
	if ticks == nil {
		ticks = clock.NewMonotonic()
	}

	link := overrides.link
	if link == nil {
		if cfg.Network.Disabled {
			link = netlink.AlwaysUp{}
		} else {
			link = netlink.NewInterfaceLink(cfg.Network.Interface)
		}
	}

	interval := cfg.Loop.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if interval > config.MaxInterval {
		return nil, fmt.Errorf("loop.interval must not exceed %s", config.MaxInterval)
	}
	loop, err := pipeline.NewTelemetryLoop(pipeline.LoopDeps{
		Gate:    pipeline.NewGate(uint32(interval.Milliseconds())),
		Ticks:   ticks,
		Sampler: sampler,
		Clock:   ts,
		Link:    link,
		Meta:    domain.Meta{Location: cfg.Device.Location},
		Routes:  routes,
		Obs:     obs,
	})
	if err != nil {
		return nil, err
	}

	sessions := w.sessions
	for _, r := range overrides.routes {
		if op, ok := r.Transport.(ports.Opener); ok {
			sessions = append(sessions, session{name: r.Transport.Name(), opener: op})
		}
	}

	return &Runtime{
		cfg:      cfg,
		obs:      obs,
		registry: reg,
		loop:     loop,
		routes:   routes,
		sensors:  sampler.Channels(),
		link:     link,
		syncer:   syncer,
		sessions: sessions,
		closers:  w.closers,
	}, nil
}

// Start runs bring-up (link, time, sessions), then launches the telemetry
// loop and background workers. It returns once the loop is running; call
// Run to block on a context instead.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.started {
		return fmt.Errorf("runtime already started")
	}

	steps := []bringup.Step{bringup.WaitForLink(r.link, r.cfg.Network.Required)}
	if r.syncer != nil {
		steps = append(steps, bringup.SyncTime(r.syncer, r.cfg.Time.Required))
	}
	for _, s := range r.sessions {
		steps = append(steps, bringup.OpenSession(s.name, s.opener, s.required))
	}
	rep, err := bringup.NewRunner(r.cfg.Bringup, r.obs).Run(ctx, steps...)
	if err != nil {
		return err
	}
	if len(rep.Failed) > 0 {
		r.obs.LogInfo("bringup_degraded", ports.F("failed", rep.Failed))
	}
	r.setSynced()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.started = true

	if !r.cfg.Metrics.Disabled {
		r.startMetrics()
	}
	if r.syncer != nil {
		r.goWorker(func() { r.resync(runCtx) })
	}
	if len(r.sessions) > 0 {
		r.goWorker(func() { r.keepSessions(runCtx) })
	}
	r.goWorker(func() {
		_ = r.loop.Run(runCtx, r.cfg.Loop.PollInterval)
	})

	r.obs.LogInfo("runtime_started",
		ports.F("location", r.cfg.Device.Location),
		ports.F("routes", len(r.routes)),
		ports.F("sensors", strings.Join(r.sensors, ",")),
		ports.F("interval", r.cfg.Loop.Interval.String()))
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		cerr := closeAll(r.closers)
		r.closers = nil
		return errors.Join(err, cerr)
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the loop and workers, the metrics server and every
// transport and sensor handle.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.cancel != nil {
		r.cancel()
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for workers: %w", ctx.Err()))
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := closeAll(r.closers); err != nil {
		errs = append(errs, err)
	}
	r.closers = nil

	return errors.Join(errs...)
}

// Tick runs a single loop step. It is meant for callers that drive the
// runtime from their own scheduler instead of Start.
func (r *Runtime) Tick(ctx context.Context) bool {
	return r.loop.Tick(ctx)
}

// Gatherer exposes the metrics registry for embedding in another server.
func (r *Runtime) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Runtime) goWorker(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err, ports.F("addr", r.cfg.Metrics.Addr))
		}
	}()
}

func (r *Runtime) setSynced() {
	if r.syncer != nil && r.syncer.Synced() {
		r.obs.SetGauge("airdaq_time_synced", 1)
		return
	}
	r.obs.SetGauge("airdaq_time_synced", 0)
}

func (r *Runtime) resync(ctx context.Context) {
	every := r.cfg.Time.ResyncInterval
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.syncer.Sync(ctx); err != nil {
				r.obs.LogError("time_resync_failed", err, ports.F("server", r.cfg.Time.Server))
			}
			r.setSynced()
		}
	}
}

// keepSessions re-opens sessions that dropped or never came up. Sends on a
// closed session keep failing fast with not_connected until then.
func (r *Runtime) keepSessions(ctx context.Context) {
	every := r.cfg.Bringup.ReopenInterval
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reopen(ctx, every)
		}
	}
}

func (r *Runtime) reopen(ctx context.Context, timeout time.Duration) {
	for _, s := range r.sessions {
		if s.opener.Ready() {
			continue
		}
		openCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.opener.Open(openCtx)
		cancel()
		if err != nil {
			r.obs.LogError("session_reopen_failed", err, ports.F("session", s.name))
			continue
		}
		r.obs.LogInfo("session_reopened", ports.F("session", s.name))
	}
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
