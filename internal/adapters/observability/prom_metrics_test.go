package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), reg)

	obs.IncCounter("airdaq_cycles_total", 5)
	if got := testutil.ToFloat64(obs.counters["airdaq_cycles_total"]); got != 5 {
		t.Fatalf("expected cycles counter 5, got %f", got)
	}

	obs.IncCounter("airdaq_samples_invalid_total", 2)
	if got := testutil.ToFloat64(obs.counters["airdaq_samples_invalid_total"]); got != 2 {
		t.Fatalf("expected invalid counter 2, got %f", got)
	}

	obs.IncCounter("unknown_metric", 1)

	obs.SetGauge("airdaq_time_synced", 1)
	if got := testutil.ToFloat64(obs.gauges["airdaq_time_synced"]); got != 1 {
		t.Fatalf("expected synced gauge 1, got %f", got)
	}

	obs.RecordOutcome(domain.Succeeded("rest", "http://x", 200), 0.2)
	obs.RecordOutcome(domain.Failed("rest", "http://x", 503, errors.New("unavailable")), 0.1)
	obs.RecordOutcome(domain.Failed("docstore", "/a/b", 0, domain.ErrNotAuthenticated), 0)

	if got := testutil.ToFloat64(obs.uploads.WithLabelValues("rest", "ok")); got != 1 {
		t.Fatalf("expected 1 ok rest upload, got %f", got)
	}
	if got := testutil.ToFloat64(obs.uploads.WithLabelValues("rest", "transport_failure")); got != 1 {
		t.Fatalf("expected 1 failed rest upload, got %f", got)
	}
	if got := testutil.ToFloat64(obs.uploads.WithLabelValues("docstore", "not_authenticated")); got != 1 {
		t.Fatalf("expected 1 unauthenticated docstore upload, got %f", got)
	}

	hCollector := obs.histos["airdaq_upload_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to be collected once, got %d", samples)
	}
}

func TestPromObsLogsFields(t *testing.T) {
	var buf bytes.Buffer
	obs := NewPromObs(slog.New(slog.NewTextHandler(&buf, nil)), prometheus.NewRegistry())

	obs.LogError("upload_failed", errors.New("timeout"), ports.F("transport", "rest"))

	out := buf.String()
	for _, want := range []string{"upload_failed", "transport=rest", "error=timeout"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output %q", want, out)
		}
	}
}
