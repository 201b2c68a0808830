// Package influx writes one InfluxDB point per record.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

func (c *Config) ApplyDefaults() {
	if c.Measurement == "" {
		c.Measurement = "airdaq"
	}
}

func (c *Config) Validate() error {
	if c.URL == "" || c.Token == "" || c.Org == "" || c.Bucket == "" {
		return errors.New("url, token, org and bucket are required")
	}
	return nil
}

type Transport struct {
	name     string
	cfg      Config
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// requestTimeoutSeconds rounds d up to whole seconds. The client treats 0 as
// no timeout, so any positive d yields at least 1.
func requestTimeoutSeconds(d time.Duration) uint {
	secs := uint((d + time.Second - 1) / time.Second)
	if secs == 0 {
		secs = 1
	}
	return secs
}

func New(name string, cfg Config, timeout time.Duration) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("influx %s: %w", name, err)
	}
	opts := influxdb2.DefaultOptions()
	if timeout > 0 {
		opts.SetHTTPRequestTimeout(requestTimeoutSeconds(timeout))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Transport{
		name:     name,
		cfg:      cfg,
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (t *Transport) Name() string { return t.name }

func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	target := t.cfg.Bucket + "/" + t.cfg.Measurement
	if err := t.writeAPI.WritePoint(ctx, Point(t.cfg.Measurement, rec)); err != nil {
		return domain.Failed(t.name, target, 0, fmt.Errorf("write point: %w", err))
	}
	return domain.Succeeded(t.name, target, 0)
}

func (t *Transport) Close() error {
	t.client.Close()
	return nil
}

// Point maps rec onto a point tagged by location. Single-reading records
// are also tagged by kind. An unknown time leaves the timestamp to the server.
func Point(measurement string, rec *domain.Record) *write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement).AddTag("location", rec.Location)
	if len(rec.Readings) == 1 && rec.Readings[0].Kind != "" {
		p.AddTag("kind", string(rec.Readings[0].Kind))
	}
	for _, rd := range rec.Readings {
		p.AddField(rd.ID, rd.Value)
	}
	if ts, ok := rec.Time.Time(); ok {
		p.SetTime(ts)
	}
	return p
}

var _ ports.Transport = (*Transport)(nil)
