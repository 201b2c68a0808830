package ports

import (
	"context"

	"github.com/ghalamif/airdaq/internal/domain"
)

// TickSource is a free-running millisecond counter that may wrap.
type TickSource interface {
	Millis() uint32
}

// TimeSource supplies the best-known wall-clock time.
type TimeSource interface {
	Now() domain.Timestamp
}

// Synchronizer is implemented by time sources that sync against an authority.
type Synchronizer interface {
	Sync(ctx context.Context) error
	Synced() bool
}
