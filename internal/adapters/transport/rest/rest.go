// Package rest posts one JSON body per record to a fixed HTTP endpoint.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghalamif/airdaq/internal/app/payload"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	URL    string `yaml:"url"`
	Flavor string `yaml:"flavor"`
	APIKey string `yaml:"api_key"`
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	flavor, err := payload.ParseRESTFlavor(c.Flavor)
	if err != nil {
		return err
	}
	if flavor == payload.FlavorThingSpeak && c.APIKey == "" {
		return errors.New("api_key is required for the thingspeak flavor")
	}
	return nil
}

type Transport struct {
	name   string
	url    string
	flavor payload.RESTFlavor
	apiKey string
	client *http.Client
}

func New(name string, cfg Config, client *http.Client) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rest %s: %w", name, err)
	}
	flavor, _ := payload.ParseRESTFlavor(cfg.Flavor)
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Transport{
		name:   name,
		url:    cfg.URL,
		flavor: flavor,
		apiKey: cfg.APIKey,
		client: client,
	}, nil
}

func (t *Transport) Name() string { return t.name }

// Send issues a single POST. Any non-2xx status is a failure.
func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	body, err := payload.RESTBody(rec, t.flavor, t.apiKey)
	if err != nil {
		o := domain.Failed(t.name, t.url, 0, err)
		o.Reason = domain.ReasonEncodeFailure
		return o
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return domain.Failed(t.name, t.url, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return domain.Failed(t.name, t.url, 0, fmt.Errorf("post: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.Failed(t.name, t.url, resp.StatusCode,
			fmt.Errorf("post: %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return domain.Succeeded(t.name, t.url, resp.StatusCode)
}

var _ ports.Transport = (*Transport)(nil)
