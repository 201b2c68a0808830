package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/airdaq/internal/adapters/opcua"
	"github.com/ghalamif/airdaq/internal/adapters/sensor"
	"github.com/ghalamif/airdaq/internal/adapters/transport/appendlog"
	"github.com/ghalamif/airdaq/internal/adapters/transport/breaker"
	"github.com/ghalamif/airdaq/internal/adapters/transport/docstore"
	"github.com/ghalamif/airdaq/internal/adapters/transport/influx"
	"github.com/ghalamif/airdaq/internal/adapters/transport/kafka"
	"github.com/ghalamif/airdaq/internal/adapters/transport/mqtt"
	"github.com/ghalamif/airdaq/internal/adapters/transport/rest"
	"github.com/ghalamif/airdaq/internal/adapters/transport/sqlstore"
	"github.com/ghalamif/airdaq/internal/app/bringup"
	"github.com/ghalamif/airdaq/internal/app/pipeline"
	"github.com/ghalamif/airdaq/internal/domain"
)

type Config struct {
	Device     DeviceConfig      `yaml:"device"`
	Loop       LoopConfig        `yaml:"loop"`
	Time       TimeConfig        `yaml:"time"`
	Network    NetworkConfig     `yaml:"network"`
	Bringup    bringup.Config    `yaml:"bringup"`
	OPCUA      opcua.Config      `yaml:"opcua"`
	Sensors    []SensorConfig    `yaml:"sensors"`
	Transports []TransportConfig `yaml:"transports"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Log        LogConfig         `yaml:"log"`
}

type DeviceConfig struct {
	Location string `yaml:"location"`
}

type LoopConfig struct {
	Interval     time.Duration `yaml:"interval"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TimeConfig struct {
	Disabled       bool          `yaml:"disabled"`
	Server         string        `yaml:"server"`
	UTCOffset      time.Duration `yaml:"utc_offset"`
	DSTOffset      time.Duration `yaml:"dst_offset"`
	Timeout        time.Duration `yaml:"timeout"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	// Required aborts start-up when the first sync never succeeds.
	Required bool `yaml:"required"`
}

type NetworkConfig struct {
	// Interface restricts link detection to one interface; empty means any.
	Interface string `yaml:"interface"`
	Required  bool   `yaml:"required"`
	// Disabled treats the link as always up.
	Disabled bool `yaml:"disabled"`
}

type SensorConfig struct {
	ID         string              `yaml:"id"`
	Label      string              `yaml:"label"`
	Kind       string              `yaml:"kind"`
	Driver     string              `yaml:"driver"`
	Conversion pipeline.Conversion `yaml:"conversion"`

	IIO     sensor.IIOConfig     `yaml:"iio"`
	BME280  sensor.BME280Config  `yaml:"bme280"`
	ADS1115 sensor.ADS1115Config `yaml:"ads1115"`
	Sim     sensor.SimConfig     `yaml:"sim"`
	OPCUA   opcua.NodeConfig     `yaml:"opcua"`
}

type TransportConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// Sensors limits the transport to these sensor IDs; empty means all.
	Sensors   []string      `yaml:"sensors"`
	PerSensor bool          `yaml:"per_sensor"`
	Timeout   time.Duration `yaml:"timeout"`
	// Required aborts start-up when the session cannot be opened.
	Required bool           `yaml:"required"`
	Breaker  breaker.Config `yaml:"breaker"`

	Docstore  docstore.Config  `yaml:"docstore"`
	REST      rest.Config      `yaml:"rest"`
	AppendLog appendlog.Config `yaml:"appendlog"`
	MQTT      mqtt.Config      `yaml:"mqtt"`
	Influx    influx.Config    `yaml:"influx"`
	SQL       sqlstore.Config  `yaml:"sql"`
	Kafka     kafka.Config     `yaml:"kafka"`
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DriverIIO     = "iio"
	DriverBME280  = "bme280"
	DriverADS1115 = "ads1115"
	DriverOPCUA   = "opcua"
	DriverSim     = "sim"

	TransportDocstore  = "docstore"
	TransportREST      = "rest"
	TransportAppendLog = "appendlog"
	TransportMQTT      = "mqtt"
	TransportInflux    = "influx"
	TransportSQL       = "sql"
	TransportKafka     = "kafka"
)

// Load reads path, expands ${VAR} references from the environment, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Loop.Interval == 0 {
		c.Loop.Interval = 10 * time.Second
	}
	if c.Loop.PollInterval == 0 {
		c.Loop.PollInterval = 50 * time.Millisecond
	}
	if c.Time.Server == "" {
		c.Time.Server = "pool.ntp.org"
	}
	if c.Time.Timeout == 0 {
		c.Time.Timeout = 5 * time.Second
	}
	if c.Time.ResyncInterval == 0 {
		c.Time.ResyncInterval = time.Hour
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.Bringup.ApplyDefaults()

	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Label == "" {
			s.Label = s.ID
		}
		if s.Conversion.Mode == "" {
			s.Conversion.Mode = pipeline.ConvertNone
		}
		if s.Conversion.Mode == pipeline.ConvertLinear && s.Conversion.Scale == 0 {
			s.Conversion.Scale = 1
		}
		switch s.Driver {
		case DriverBME280:
			s.BME280.ApplyDefaults()
		case DriverADS1115:
			s.ADS1115.ApplyDefaults()
		case DriverSim:
			s.Sim.ApplyDefaults()
		case DriverOPCUA:
			c.OPCUA.ApplyDefaults()
		}
	}
	for i := range c.Transports {
		t := &c.Transports[i]
		if t.Name == "" {
			t.Name = t.Type
		}
		if t.Timeout == 0 {
			t.Timeout = 10 * time.Second
		}
		t.Breaker.ApplyDefaults()
		switch t.Type {
		case TransportDocstore:
			t.Docstore.ApplyDefaults()
		case TransportAppendLog:
			t.AppendLog.ApplyDefaults()
		case TransportMQTT:
			t.MQTT.ApplyDefaults()
		case TransportInflux:
			t.Influx.ApplyDefaults()
		case TransportSQL:
			t.SQL.ApplyDefaults()
		case TransportKafka:
			t.Kafka.ApplyDefaults()
		}
	}
}

// MaxInterval is the longest loop interval the 32-bit millisecond gate can
// represent without wrapping.
const MaxInterval = time.Duration(math.MaxUint32) * time.Millisecond

func (c *Config) validate() error {
	if c.Device.Location == "" {
		return fmt.Errorf("device.location is required")
	}
	if c.Loop.Interval < time.Millisecond {
		return fmt.Errorf("loop.interval must be at least 1ms")
	}
	if c.Loop.Interval > MaxInterval {
		return fmt.Errorf("loop.interval must not exceed %s", MaxInterval)
	}
	if c.Loop.PollInterval <= 0 {
		return fmt.Errorf("loop.poll_interval must be positive")
	}
	if c.Time.UTCOffset < -14*time.Hour || c.Time.UTCOffset > 14*time.Hour {
		return fmt.Errorf("time.utc_offset out of range: %s", c.Time.UTCOffset)
	}
	if len(c.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	if len(c.Transports) == 0 {
		return fmt.Errorf("at least one transport is required")
	}

	ids := make(map[string]struct{}, len(c.Sensors))
	usesOPCUA := false
	for i, s := range c.Sensors {
		if err := s.validate(); err != nil {
			return fmt.Errorf("sensors[%d]: %w", i, err)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("sensors[%d]: duplicate id %q", i, s.ID)
		}
		ids[s.ID] = struct{}{}
		usesOPCUA = usesOPCUA || s.Driver == DriverOPCUA
	}
	if usesOPCUA {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}

	names := make(map[string]struct{}, len(c.Transports))
	for i, t := range c.Transports {
		if err := t.validate(); err != nil {
			return fmt.Errorf("transports[%d] %s: %w", i, t.Name, err)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("transports[%d]: duplicate name %q", i, t.Name)
		}
		names[t.Name] = struct{}{}
		for _, id := range t.Sensors {
			if _, ok := ids[id]; !ok {
				return fmt.Errorf("transports[%d] %s: unknown sensor %q", i, t.Name, id)
			}
		}
	}
	return nil
}

func (s *SensorConfig) validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := domain.ParseKind(s.Kind); err != nil {
		return err
	}
	switch s.Conversion.Mode {
	case pipeline.ConvertNone, pipeline.ConvertLinear:
	case pipeline.ConvertRatio:
		if s.Conversion.FullScale <= 0 {
			return fmt.Errorf("conversion.full_scale must be positive for ratio mode")
		}
	default:
		return fmt.Errorf("unknown conversion mode %q", s.Conversion.Mode)
	}

	switch s.Driver {
	case DriverIIO:
		return s.IIO.Validate()
	case DriverBME280:
		return s.BME280.Validate()
	case DriverADS1115:
		return s.ADS1115.Validate()
	case DriverSim:
		return s.Sim.Validate()
	case DriverOPCUA:
		if s.OPCUA.NodeID == "" {
			return fmt.Errorf("opcua.node_id is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown driver %q", s.Driver)
	}
}

func (t *TransportConfig) validate() error {
	if t.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	switch t.Type {
	case TransportDocstore:
		return t.Docstore.Validate()
	case TransportREST:
		return t.REST.Validate()
	case TransportAppendLog:
		return t.AppendLog.Validate()
	case TransportMQTT:
		return t.MQTT.Validate()
	case TransportInflux:
		return t.Influx.Validate()
	case TransportSQL:
		return t.SQL.Validate()
	case TransportKafka:
		return t.Kafka.Validate()
	default:
		return fmt.Errorf("unknown transport type %q", t.Type)
	}
}
