package domain

import (
	"fmt"
	"math"
	"time"
)

// Kind classifies what a sensor channel measures.
type Kind string

const (
	KindHall        Kind = "Hall"
	KindTouch       Kind = "Touch"
	KindTemperature Kind = "Temperature"
	KindHumidity    Kind = "Humidity"
	KindCO2         Kind = "CO2"
	KindPressure    Kind = "Pressure"
	KindGeneric     Kind = "Generic"
)

// ParseKind maps a configured kind name onto a Kind. Matching is exact.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindHall, KindTouch, KindTemperature, KindHumidity, KindCO2, KindPressure, KindGeneric:
		return k, nil
	case "":
		return KindGeneric, nil
	default:
		return "", fmt.Errorf("unknown sensor kind %q", s)
	}
}

// Reading is one validated, unit-converted sample of a single channel.
// Value is never NaN or infinite; NewReading enforces it.
type Reading struct {
	ID    string
	Label string
	Kind  Kind
	Value float64
}

// NewReading builds a Reading, rejecting values that cannot be uploaded.
func NewReading(id, label string, kind Kind, value float64) (Reading, error) {
	if !IsFinite(value) {
		return Reading{}, fmt.Errorf("sensor %s: %w", id, ErrInvalidValue)
	}
	return Reading{ID: id, Label: label, Kind: kind, Value: value}, nil
}

// IsFinite reports whether v is a usable sensor value.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TimeLayout is the wall-clock layout used in document payloads.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp is a wall-clock instant or the Unknown sentinel, which is
// distinct from the zero epoch.
type Timestamp struct {
	t     time.Time
	known bool
}

// Unknown is returned by time sources that never synchronized.
var Unknown = Timestamp{}

// At wraps a known instant. The instant's location is kept for formatting.
func At(t time.Time) Timestamp { return Timestamp{t: t, known: true} }

// Known reports whether the timestamp carries a real instant.
func (ts Timestamp) Known() bool { return ts.known }

// Time returns the instant and whether it is known.
func (ts Timestamp) Time() (time.Time, bool) { return ts.t, ts.known }

// Format renders the timestamp with TimeLayout, or "" when unknown.
func (ts Timestamp) Format() string {
	if !ts.known {
		return ""
	}
	return ts.t.Format(TimeLayout)
}

// Unix returns epoch seconds and whether the timestamp is known.
func (ts Timestamp) Unix() (int64, bool) {
	if !ts.known {
		return 0, false
	}
	return ts.t.Unix(), true
}

func (ts Timestamp) String() string {
	if !ts.known {
		return "unknown"
	}
	return ts.Format()
}
