package clock

import (
	"time"

	"github.com/ghalamif/airdaq/internal/ports"
)

// Monotonic is a millisecond tick counter driven by the runtime's monotonic
// clock. Like a microcontroller millis() counter it wraps after ~49.7 days.
type Monotonic struct {
	start time.Time
	base  uint32
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// NewMonotonicAt starts the counter at base, which lets soak tests cross
// the wrap point without waiting for it.
func NewMonotonicAt(base uint32) *Monotonic {
	return &Monotonic{start: time.Now(), base: base}
}

func (m *Monotonic) Millis() uint32 {
	return m.base + uint32(time.Since(m.start)/time.Millisecond)
}

var _ ports.TickSource = (*Monotonic)(nil)
