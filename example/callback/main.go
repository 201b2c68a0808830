package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/airdaq/pkg/airdaq"
)

// Runs two simulated sensors without any hardware or network and prints
// every record to stdout.
func main() {
	cfg := &airdaq.Config{
		Device: airdaq.DeviceConfig{Location: "desk"},
		Loop:   airdaq.LoopConfig{Interval: 2 * time.Second, PollInterval: 50 * time.Millisecond},
		Time:   airdaq.TimeConfig{Disabled: true},
		Sensors: []airdaq.SensorConfig{
			{ID: "Hall", Kind: "Hall", Driver: "sim", Sim: airdaq.SimConfig{Base: 30, Step: 3}},
			{ID: "Temperature", Kind: "Temperature", Driver: "sim", Sim: airdaq.SimConfig{Base: 21, Step: 0.2}},
		},
		Metrics: airdaq.MetricsConfig{Disabled: true},
		Log:     airdaq.LogConfig{Level: "info", Format: "text"},
	}

	flow, err := airdaq.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(_ context.Context, rec airdaq.Record) error {
		for _, rd := range rec.Readings {
			fmt.Printf("%s %s %s=%.2f\n", rec.Time.Format(time.RFC3339), rec.Location, rd.ID, rd.Value)
		}
		return nil
	}

	if err := flow.Run(ctx, airdaq.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
