// Package mqtt publishes log entries to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
	// SensorTopics publishes each reading to {prefix}/{location}/{ID}.
	SensorTopics bool `yaml:"sensor_topics"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "airdaq"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "airdaq"
	}
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// client is the subset of paho.Client the transport uses.
type client interface {
	Connect() paho.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Transport struct {
	name   string
	cfg    Config
	client client
}

func New(name string, cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt %s: %w", name, err)
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	return newWithClient(name, cfg, paho.NewClient(opts)), nil
}

func newWithClient(name string, cfg Config, c client) *Transport {
	return &Transport{name: name, cfg: cfg, client: c}
}

func (t *Transport) Name() string { return t.name }

// Open connects to the broker, giving up when ctx ends.
func (t *Transport) Open(ctx context.Context) error {
	if t.client.IsConnectionOpen() {
		return nil
	}
	if err := wait(ctx, t.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, err)
	}
	return nil
}

func (t *Transport) Ready() bool { return t.client.IsConnectionOpen() }

func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	base := t.cfg.TopicPrefix + "/" + rec.Location
	if !t.client.IsConnectionOpen() {
		return domain.Failed(t.name, base, 0, domain.ErrNotConnected)
	}

	msgs := []*domain.Record{rec}
	if t.cfg.SensorTopics {
		msgs = rec.PerSensor()
	}
	var (
		topics []string
		failed *domain.UploadOutcome
	)
	for _, m := range msgs {
		topic := base
		if t.cfg.SensorTopics {
			topic = base + "/" + m.Readings[0].ID
		}
		topics = append(topics, topic)

		var o domain.UploadOutcome
		body, err := payload.LogEntry(m)
		if err != nil {
			o = domain.Failed(t.name, topic, 0, err)
			o.Reason = domain.ReasonEncodeFailure
		} else if err := wait(ctx, t.client.Publish(topic, t.cfg.QoS, t.cfg.Retain, body)); err != nil {
			o = domain.Failed(t.name, topic, 0, fmt.Errorf("publish: %w", err))
		} else {
			continue
		}
		// Remaining sensor topics are still published.
		if failed == nil {
			failed = &o
		}
	}
	if failed != nil {
		return *failed
	}
	return domain.Succeeded(t.name, strings.Join(topics, ","), 0)
}

func (t *Transport) Close() error {
	t.client.Disconnect(250)
	return nil
}

func wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ ports.Transport = (*Transport)(nil)
	_ ports.Opener    = (*Transport)(nil)
)
