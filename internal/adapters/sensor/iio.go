package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOConfig points at a Linux IIO sysfs attribute such as
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOConfig struct {
	Path string `yaml:"path"`
}

func (c *IIOConfig) Validate() error {
	if c.Path == "" {
		return errors.New("iio.path is required")
	}
	return nil
}

// IIOSource reads one numeric attribute per call.
type IIOSource struct {
	path string
}

func NewIIOSource(cfg IIOConfig) (*IIOSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IIOSource{path: cfg.Path}, nil
}

func (s *IIOSource) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("iio read: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("iio parse %s: %w", s.path, err)
	}
	return v, nil
}
