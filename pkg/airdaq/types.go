package airdaq

import (
	"github.com/ghalamif/airdaq/internal/app/pipeline"
	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

// SensorSource performs one raw read of a sensor channel.
type SensorSource = ports.SensorSource

// Transport uploads one record per call and never retries or buffers.
type Transport = ports.Transport

// Opener is implemented by transports that need a session before sending.
type Opener = ports.Opener

// TimeSource supplies the wall-clock timestamp stamped onto each record.
type TimeSource = ports.TimeSource

// TickSource is the wrapping millisecond counter that drives the gate.
type TickSource = ports.TickSource

// Link reports whether the network is usable.
type Link = ports.Link

// Observability receives logs, counters and upload outcomes.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Route binds a transport to the sensors it uploads.
type Route = pipeline.Route

// DomainRecord is the internal record handed to transports.
type DomainRecord = domain.Record

// UploadOutcome reports a single send attempt.
type UploadOutcome = domain.UploadOutcome

// Reason classifies an upload outcome.
type Reason = domain.Reason

var (
	ErrNotAuthenticated = domain.ErrNotAuthenticated
	ErrNotConnected     = domain.ErrNotConnected
)

// Kind classifies what a sensor channel measures.
type Kind = domain.Kind

// ParseKind maps a configured kind name onto a Kind.
func ParseKind(s string) (Kind, error) { return domain.ParseKind(s) }
