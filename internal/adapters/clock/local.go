package clock

import (
	"time"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

// Local trusts the host clock, for devices whose time is already managed by
// the OS.
type Local struct {
	zone *time.Location
}

func NewLocal(utcOffset, dstOffset time.Duration) *Local {
	return &Local{zone: time.FixedZone("", int((utcOffset + dstOffset).Seconds()))}
}

func (l *Local) Now() domain.Timestamp { return domain.At(time.Now().In(l.zone)) }

var _ ports.TimeSource = (*Local)(nil)
