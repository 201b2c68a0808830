// Package appendlog appends one JSON entry per record to a Redis string,
// followed by a separator, so readers can split the value into entries.
package appendlog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

const (
	DefaultKey       = "data"
	DefaultSeparator = ";"
)

type Config struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Key       string `yaml:"key"`
	Separator string `yaml:"separator"`
}

func (c *Config) ApplyDefaults() {
	if c.Key == "" {
		c.Key = DefaultKey
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DB < 0 {
		return errors.New("db must be >= 0")
	}
	return nil
}

type Transport struct {
	name string
	cfg  Config

	mu     sync.Mutex
	client *redis.Client
}

func New(name string, cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("appendlog %s: %w", name, err)
	}
	return &Transport{name: name, cfg: cfg}, nil
}

func (t *Transport) Name() string { return t.name }

// Open connects and authenticates. A failed PING leaves the transport
// without a session.
func (t *Transport) Open(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     t.cfg.Addr,
		Username: t.cfg.Username,
		Password: t.cfg.Password,
		DB:       t.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", t.cfg.Addr, err)
	}

	t.mu.Lock()
	old := t.client
	t.client = client
	t.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (t *Transport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// Send appends the entry and then the separator as two writes.
func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return domain.Failed(t.name, t.cfg.Key, 0, domain.ErrNotConnected)
	}

	entry, err := payload.LogEntry(rec)
	if err != nil {
		o := domain.Failed(t.name, t.cfg.Key, 0, err)
		o.Reason = domain.ReasonEncodeFailure
		return o
	}
	if err := client.Append(ctx, t.cfg.Key, string(entry)).Err(); err != nil {
		return domain.Failed(t.name, t.cfg.Key, 0, fmt.Errorf("append entry: %w", err))
	}
	if err := client.Append(ctx, t.cfg.Key, t.cfg.Separator).Err(); err != nil {
		return domain.Failed(t.name, t.cfg.Key, 0, fmt.Errorf("append separator: %w", err))
	}
	return domain.Succeeded(t.name, t.cfg.Key, 0)
}

func (t *Transport) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

var (
	_ ports.Transport = (*Transport)(nil)
	_ ports.Opener    = (*Transport)(nil)
)
