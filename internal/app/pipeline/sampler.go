package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

// ConversionMode selects how a raw read becomes an engineering value.
type ConversionMode string

const (
	ConvertNone   ConversionMode = "none"
	ConvertRatio  ConversionMode = "ratio"
	ConvertLinear ConversionMode = "linear"
)

// Conversion maps raw reads to engineering units.
type Conversion struct {
	Mode      ConversionMode `yaml:"mode"`
	FullScale float64        `yaml:"full_scale"`
	Scale     float64        `yaml:"scale"`
	Offset    float64        `yaml:"offset"`
}

// Apply converts raw. Ratio mode with a non-positive full scale yields NaN,
// which the sampler rejects.
func (c Conversion) Apply(raw float64) float64 {
	switch c.Mode {
	case ConvertRatio:
		if c.FullScale <= 0 {
			return math.NaN()
		}
		return raw / c.FullScale
	case ConvertLinear:
		return raw*c.Scale + c.Offset
	default:
		return raw
	}
}

// Channel is one configured sensor input.
type Channel struct {
	ID         string
	Label      string
	Kind       domain.Kind
	Source     ports.SensorSource
	Conversion Conversion
}

// SampleResult is either a valid ordered reading set or an invalid sample.
type SampleResult struct {
	Readings []domain.Reading
	// Channel names the first channel that failed; empty when valid.
	Channel string
	Err     error
}

// Valid reports whether every channel produced a usable value.
func (r SampleResult) Valid() bool { return r.Err == nil }

// Sampler reads all configured channels once per cycle.
type Sampler struct {
	channels []Channel
}

func NewSampler(channels []Channel) (*Sampler, error) {
	if len(channels) == 0 {
		return nil, errors.New("sampler: at least one channel is required")
	}
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if ch.ID == "" {
			return nil, errors.New("sampler: channel id is required")
		}
		if ch.Source == nil {
			return nil, fmt.Errorf("sampler: channel %s has no source", ch.ID)
		}
		if _, dup := seen[ch.ID]; dup {
			return nil, fmt.Errorf("sampler: duplicate channel id %s", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return &Sampler{channels: channels}, nil
}

// Sample reads every channel in order. Any read error or non-finite converted
// value invalidates the whole sample; the value checked is the value stored.
func (s *Sampler) Sample(ctx context.Context) SampleResult {
	readings := make([]domain.Reading, 0, len(s.channels))
	for _, ch := range s.channels {
		raw, err := ch.Source.Read(ctx)
		if err != nil {
			return SampleResult{Channel: ch.ID, Err: fmt.Errorf("read %s: %w", ch.ID, err)}
		}
		rd, err := domain.NewReading(ch.ID, ch.Label, ch.Kind, ch.Conversion.Apply(raw))
		if err != nil {
			return SampleResult{Channel: ch.ID, Err: err}
		}
		readings = append(readings, rd)
	}
	return SampleResult{Readings: readings}
}

// Channels returns the configured channel IDs in order.
func (s *Sampler) Channels() []string {
	ids := make([]string, len(s.channels))
	for i, ch := range s.channels {
		ids[i] = ch.ID
	}
	return ids
}
