package pipeline

import (
	"context"
	"sync"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type stubSource struct {
	value float64
	err   error
	reads int
}

func (s *stubSource) Read(context.Context) (float64, error) {
	s.reads++
	return s.value, s.err
}

type manualTicks struct{ now uint32 }

func (m *manualTicks) Millis() uint32 { return m.now }

type fixedClock struct{ ts domain.Timestamp }

func (c fixedClock) Now() domain.Timestamp { return c.ts }

type linkState struct{ up bool }

func (l *linkState) Up() bool { return l.up }

type recordingTransport struct {
	name    string
	fail    error
	records []*domain.Record
}

func (r *recordingTransport) Name() string { return r.name }

func (r *recordingTransport) Send(_ context.Context, rec *domain.Record) domain.UploadOutcome {
	r.records = append(r.records, rec)
	target := rec.Location
	if r.fail != nil {
		return domain.Failed(r.name, target, 500, r.fail)
	}
	return domain.Succeeded(r.name, target, 200)
}

type mockObs struct {
	mu       sync.Mutex
	errors   []string
	infos    []string
	counters map[string]float64
	outcomes []domain.UploadOutcome
}

func newMockObs() *mockObs { return &mockObs{counters: map[string]float64{}} }

func (m *mockObs) LogInfo(msg string, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockObs) LogError(msg string, _ error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockObs) LogCritical(string, error, ...ports.Field) {}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

func (m *mockObs) RecordOutcome(o domain.UploadOutcome, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
}
