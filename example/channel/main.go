package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/airdaq"
)

func main() {
	flow, err := airdaq.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, records, closeRecords := airdaq.NewChannelTransport("fanout", 32)
	defer closeRecords()

	go fanoutWorker("local", records)

	if err := flow.Run(ctx, airdaq.StreamOutTransport(tr)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, records <-chan airdaq.Record) {
	for rec := range records {
		fmt.Printf("[%s] %s: %d readings at %s\n", name, rec.Location, len(rec.Readings), rec.Time.Format(time.RFC3339))
	}
}
