// Package payload assembles cycle records and renders them into the wire
// shapes the transports send. Everything here is pure and deterministic.
package payload

import "github.com/ghalamif/airdaq/internal/domain"

// Build stamps readings with ts and the device metadata. The readings are
// copied so the record never aliases sampler memory.
func Build(readings []domain.Reading, ts domain.Timestamp, meta domain.Meta) *domain.Record {
	rs := make([]domain.Reading, len(readings))
	copy(rs, readings)
	return &domain.Record{
		Location: meta.Location,
		Time:     ts,
		Readings: rs,
	}
}
