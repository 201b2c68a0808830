package sensor

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

type BME280Config struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// Field is one of temperature, humidity or pressure.
	Field string `yaml:"field"`
}

func (c *BME280Config) ApplyDefaults() {
	if c.Address == 0 {
		c.Address = 0x76
	}
}

func (c *BME280Config) Validate() error {
	switch c.Field {
	case "temperature", "humidity", "pressure":
		return nil
	default:
		return fmt.Errorf("bme280.field must be temperature, humidity or pressure, got %q", c.Field)
	}
}

type envSenser interface {
	Sense(e *physic.Env) error
}

// BME280Source reports one field of a shared BME280: degrees Celsius,
// percent relative humidity or hectopascal.
type BME280Source struct {
	dev   envSenser
	field string
}

func NewBME280Source(hw *Hardware, cfg BME280Config) (*BME280Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := hw.bme280(cfg.Bus, cfg.Address)
	if err != nil {
		return nil, err
	}
	return &BME280Source{dev: dev, field: cfg.Field}, nil
}

func (s *BME280Source) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return 0, fmt.Errorf("bme280 sense: %w", err)
	}
	return envField(env, s.field), nil
}

func envField(env physic.Env, field string) float64 {
	switch field {
	case "humidity":
		return float64(env.Humidity) / float64(physic.PercentRH)
	case "pressure":
		return float64(env.Pressure) / float64(100*physic.Pascal)
	default:
		return env.Temperature.Celsius()
	}
}
