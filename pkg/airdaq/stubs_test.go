package airdaq

import (
	"context"
	"sync"
	"time"
)

func testConfig() *Config {
	return &Config{
		Device: DeviceConfig{Location: "lab"},
		Loop:   LoopConfig{Interval: time.Second, PollInterval: time.Millisecond},
		Time:   TimeConfig{Disabled: true},
		Sensors: []SensorConfig{
			{ID: "Hall", Kind: "Hall", Driver: "sim", Sim: SimConfig{Base: 5}},
			{ID: "Touch", Kind: "Touch", Driver: "sim", Sim: SimConfig{Base: 40}},
		},
		Metrics: MetricsConfig{Disabled: true},
	}
}

type stubSource struct{ value float64 }

func (s stubSource) Read(context.Context) (float64, error) { return s.value, nil }

type manualTicks struct {
	mu  sync.Mutex
	now uint32
}

func (m *manualTicks) Millis() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTicks) advance(ms uint32) {
	m.mu.Lock()
	m.now += ms
	m.mu.Unlock()
}

type upLink struct{}

func (upLink) Up() bool { return true }

type stubOpener struct {
	Transport
	mu     sync.Mutex
	opens  int
	failed bool
}

func (s *stubOpener) Open(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return nil
}

func (s *stubOpener) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.failed && s.opens > 0
}

type stubObservability struct {
	mu     sync.Mutex
	gauges map[string]float64
	infos  []string
}

func (s *stubObservability) LogInfo(msg string, _ ...Field) {
	s.mu.Lock()
	s.infos = append(s.infos, msg)
	s.mu.Unlock()
}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gauges == nil {
		s.gauges = map[string]float64{}
	}
	s.gauges[name] = v
}
func (s *stubObservability) RecordOutcome(UploadOutcome, float64) {}
