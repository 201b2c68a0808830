package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPClock is a wall clock corrected by the offset measured against an NTP
// server. Until the first successful Sync it reports domain.Unknown.
type NTPClock struct {
	server  string
	timeout time.Duration
	zone    *time.Location
	query   queryFunc
	now     func() time.Time

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

// NewNTPClock formats times in a fixed zone of utcOffset+dstOffset.
func NewNTPClock(server string, utcOffset, dstOffset, timeout time.Duration) *NTPClock {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NTPClock{
		server:  server,
		timeout: timeout,
		zone:    time.FixedZone("", int((utcOffset + dstOffset).Seconds())),
		query:   ntp.QueryWithOptions,
		now:     time.Now,
	}
}

// Sync queries the server once and, if the response is usable, stores the
// clock offset. A failed sync keeps the previous offset.
func (c *NTPClock) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = true
	c.mu.Unlock()
	return nil
}

func (c *NTPClock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

func (c *NTPClock) Now() domain.Timestamp {
	c.mu.RLock()
	offset, synced := c.offset, c.synced
	c.mu.RUnlock()
	if !synced {
		return domain.Unknown
	}
	return domain.At(c.now().Add(offset).In(c.zone))
}

var (
	_ ports.TimeSource   = (*NTPClock)(nil)
	_ ports.Synchronizer = (*NTPClock)(nil)
)
