package sensor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

// SimConfig describes a bounded random walk.
type SimConfig struct {
	Base float64 `yaml:"base"`
	Step float64 `yaml:"step"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Seed int64   `yaml:"seed"`
}

func (c *SimConfig) ApplyDefaults() {
	if c.Step == 0 {
		c.Step = 1
	}
	if c.Min == 0 && c.Max == 0 {
		c.Min = c.Base - 10*c.Step
		c.Max = c.Base + 10*c.Step
	}
}

func (c *SimConfig) Validate() error {
	if c.Step < 0 {
		return errors.New("sim.step must be >= 0")
	}
	if c.Min > c.Max {
		return errors.New("sim.min must be <= sim.max")
	}
	if c.Base < c.Min || c.Base > c.Max {
		return errors.New("sim.base must lie within [min, max]")
	}
	return nil
}

// SimSource drifts by at most Step per read and stays within [Min, Max].
type SimSource struct {
	cfg SimConfig

	mu    sync.Mutex
	rng   *rand.Rand
	value float64
}

func NewSimSource(cfg SimConfig) (*SimSource, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SimSource{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		value: cfg.Base,
	}, nil
}

func (s *SimSource) Read(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.value + (s.rng.Float64()*2-1)*s.cfg.Step
	if next < s.cfg.Min {
		next = s.cfg.Min
	}
	if next > s.cfg.Max {
		next = s.cfg.Max
	}
	s.value = next
	return next, nil
}
