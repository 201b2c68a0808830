package ports

import (
	"context"

	"github.com/ghalamif/airdaq/internal/domain"
)

// Transport sends one record to a remote sink. Implementations make a single
// attempt and never buffer.
type Transport interface {
	Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome
	Name() string
}

// Opener is implemented by transports that need a session (connect and/or
// authenticate) before Send can succeed.
type Opener interface {
	Open(ctx context.Context) error
	Ready() bool
}
