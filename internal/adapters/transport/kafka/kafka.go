// Package kafka produces one message per record, keyed by location.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// Acks is the number of required acknowledgements; -1 waits for all replicas.
	Acks int `yaml:"acks"`
}

func (c *Config) ApplyDefaults() {
	if c.Acks == 0 {
		c.Acks = int(kafka.RequireOne)
	}
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one broker is required")
	}
	if c.Topic == "" {
		return errors.New("topic is required")
	}
	if c.Acks < -1 {
		return fmt.Errorf("invalid acks %d", c.Acks)
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Transport struct {
	name   string
	topic  string
	writer messageWriter
}

func New(name string, cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka %s: %w", name, err)
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequiredAcks(cfg.Acks),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
		MaxAttempts:            1,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newWithWriter(name, cfg.Topic, w), nil
}

func newWithWriter(name, topic string, w messageWriter) *Transport {
	return &Transport{name: name, topic: topic, writer: w}
}

func (t *Transport) Name() string { return t.name }

func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	value, err := payload.LogEntry(rec)
	if err != nil {
		o := domain.Failed(t.name, t.topic, 0, err)
		o.Reason = domain.ReasonEncodeFailure
		return o
	}
	msg := kafka.Message{Key: []byte(rec.Location), Value: value}
	if at, ok := rec.Time.Time(); ok {
		msg.Time = at
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return domain.Failed(t.name, t.topic, 0, fmt.Errorf("write message: %w", err))
	}
	return domain.Succeeded(t.name, t.topic, 0)
}

func (t *Transport) Close() error { return t.writer.Close() }

var _ ports.Transport = (*Transport)(nil)
