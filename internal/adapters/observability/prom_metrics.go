package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	uploads  *prometheus.CounterVec
}

// NewPromObs registers the airdaq metrics on reg and logs through logger.
// A nil reg uses the default registerer; a nil logger uses slog.Default.
func NewPromObs(logger *slog.Logger, reg prometheus.Registerer) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "airdaq_cycles_total",
		Help: "Sampling cycles started by the gate.",
	})
	invalid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "airdaq_samples_invalid_total",
		Help: "Cycles dropped because a channel read was invalid.",
	})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdaq_uploads_total",
		Help: "Upload attempts by transport and outcome reason.",
	}, []string{"transport", "reason"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdaq_upload_latency_seconds",
		Help:    "Duration of a single transport send.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})
	synced := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "airdaq_time_synced",
		Help: "1 when the wall clock has been synchronized.",
	})
	linkUp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "airdaq_link_up",
		Help: "1 when the network link was up at the last cycle.",
	})

	reg.MustRegister(cycles, invalid, uploads, latency, synced, linkUp)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			"airdaq_cycles_total":          cycles,
			"airdaq_samples_invalid_total": invalid,
		},
		gauges: map[string]prometheus.Gauge{
			"airdaq_time_synced": synced,
			"airdaq_link_up":     linkUp,
		},
		histos: map[string]prometheus.Observer{
			"airdaq_upload_latency_seconds": latency,
		},
		uploads: uploads,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), "error", err)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), "error", err, "critical", true)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordOutcome(o domain.UploadOutcome, seconds float64) {
	p.uploads.WithLabelValues(o.Transport, string(o.Reason)).Inc()
	if seconds > 0 {
		p.ObserveLatency("airdaq_upload_latency_seconds", seconds)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)*2+2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
