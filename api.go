package airdaq

import (
	base "github.com/ghalamif/airdaq/pkg/airdaq"
)

// Re-exported errors for convenience.
var (
	ErrChannelTransportClosed = base.ErrChannelTransportClosed
	ErrChannelFull            = base.ErrChannelFull
	ErrNotAuthenticated       = base.ErrNotAuthenticated
	ErrNotConnected           = base.ErrNotConnected
)

// Type aliases so consumers can import github.com/ghalamif/airdaq directly.
type (
	Config          = base.Config
	DeviceConfig    = base.DeviceConfig
	LoopConfig      = base.LoopConfig
	TimeConfig      = base.TimeConfig
	NetworkConfig   = base.NetworkConfig
	SensorConfig    = base.SensorConfig
	TransportConfig = base.TransportConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	OPCUAConfig     = base.OPCUAConfig
	OPCUANodeConfig = base.OPCUANodeConfig
	SimConfig       = base.SimConfig
	Conversion      = base.Conversion
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Reading         = base.Reading
	Record          = base.Record
	RecordHandler   = base.RecordHandler
	Kind            = base.Kind
	SensorSource    = base.SensorSource
	Transport       = base.Transport
	Opener          = base.Opener
	TimeSource      = base.TimeSource
	TickSource      = base.TickSource
	Link            = base.Link
	Observability   = base.Observability
	Field           = base.Field
	Route           = base.Route
	UploadOutcome   = base.UploadOutcome
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(id string, src SensorSource) StreamInOption {
	return base.StreamInSource(id, src)
}

func StreamInTimeSource(ts TimeSource) StreamInOption {
	return base.StreamInTimeSource(ts)
}

func StreamInLink(l Link) StreamInOption {
	return base.StreamInLink(l)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutTransport(t Transport) StreamOutOption {
	return base.StreamOutTransport(t)
}

func StreamOutRoute(r Route) StreamOutOption {
	return base.StreamOutRoute(r)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn RecordHandler) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSources(sources map[string]SensorSource) RuntimeOption {
	return base.WithSources(sources)
}

func WithTransports(routes ...Route) RuntimeOption {
	return base.WithTransports(routes...)
}

func WithTimeSource(ts TimeSource) RuntimeOption {
	return base.WithTimeSource(ts)
}

func WithTickSource(ts TickSource) RuntimeOption {
	return base.WithTickSource(ts)
}

func WithLink(l Link) RuntimeOption {
	return base.WithLink(l)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Transport adapters.
func NewCallbackTransport(name string, fn RecordHandler) Transport {
	return base.NewCallbackTransport(name, fn)
}

func NewChannelTransport(name string, buffer int) (Transport, <-chan Record, func()) {
	return base.NewChannelTransport(name, buffer)
}
