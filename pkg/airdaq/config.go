package airdaq

import (
	"github.com/ghalamif/airdaq/internal/adapters/opcua"
	"github.com/ghalamif/airdaq/internal/adapters/sensor"
	"github.com/ghalamif/airdaq/internal/app/config"
	"github.com/ghalamif/airdaq/internal/app/pipeline"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	DeviceConfig    = config.DeviceConfig
	LoopConfig      = config.LoopConfig
	TimeConfig      = config.TimeConfig
	NetworkConfig   = config.NetworkConfig
	SensorConfig    = config.SensorConfig
	TransportConfig = config.TransportConfig
	MetricsConfig   = config.MetricsConfig
	LogConfig       = config.LogConfig
	OPCUAConfig     = opcua.Config
	OPCUANodeConfig = opcua.NodeConfig
	IIOConfig       = sensor.IIOConfig
	BME280Config    = sensor.BME280Config
	ADS1115Config   = sensor.ADS1115Config
	SimConfig       = sensor.SimConfig
	// Conversion maps raw sensor reads to engineering units.
	Conversion = pipeline.Conversion
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
