package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// snapshot is the subset of agent metrics the stats command prints.
type snapshot struct {
	Cycles   float64
	Invalid  float64
	UploadOK float64
	Failed   map[string]float64
	Synced   float64
	LinkUp   float64
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: *interval}
	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(ctx, client, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	snap, err := parseSnapshot(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(snap.format(time.Now()))
	return nil
}

func parseSnapshot(r io.Reader) (snapshot, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return snapshot{}, fmt.Errorf("parse metrics: %w", err)
	}

	snap := snapshot{Failed: map[string]float64{}}
	snap.Cycles = sum(families["airdaq_cycles_total"])
	snap.Invalid = sum(families["airdaq_samples_invalid_total"])
	snap.Synced = sum(families["airdaq_time_synced"])
	snap.LinkUp = sum(families["airdaq_link_up"])

	if mf := families["airdaq_uploads_total"]; mf != nil {
		for _, m := range mf.GetMetric() {
			reason := label(m, "reason")
			v := m.GetCounter().GetValue()
			if reason == "ok" {
				snap.UploadOK += v
				continue
			}
			snap.Failed[reason] += v
		}
	}
	return snap, nil
}

func (s snapshot) format(now time.Time) string {
	var failed float64
	for _, v := range s.Failed {
		failed += v
	}
	return fmt.Sprintf("[%s] cycles=%.0f invalid=%.0f uploads_ok=%.0f uploads_failed=%.0f time_synced=%.0f link_up=%.0f",
		now.Format(time.RFC3339), s.Cycles, s.Invalid, s.UploadOK, failed, s.Synced, s.LinkUp)
}

func sum(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.GetCounter() != nil:
			total += m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			total += m.GetGauge().GetValue()
		}
	}
	return total
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
