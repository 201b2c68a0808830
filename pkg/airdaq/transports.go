package airdaq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/airdaq/internal/domain"
)

var (
	// ErrChannelTransportClosed is returned when a channel transport is sent to after being closed.
	ErrChannelTransportClosed = errors.New("airdaq: channel transport closed")
	// ErrChannelFull is returned when the consumer has not drained the channel.
	// The record is dropped, like any other failed send.
	ErrChannelFull = errors.New("airdaq: channel transport full")
)

// Reading is one converted sensor value as seen by in-process consumers.
type Reading struct {
	ID    string
	Label string
	Kind  Kind
	Value float64
}

// Record is one cycle's readings. Time is the zero time when the clock was
// never synchronized.
type Record struct {
	Location string
	Time     time.Time
	Readings []Reading
}

// RecordHandler consumes records delivered by a callback transport. A
// returned error is reported as a transport failure.
type RecordHandler func(ctx context.Context, rec Record) error

// NewCallbackTransport adapts a RecordHandler into a full Transport so callers
// can plug arbitrary functions without defining structs.
func NewCallbackTransport(name string, fn RecordHandler) Transport {
	if name == "" {
		name = "callback"
	}
	return &callbackTransport{name: name, fn: fn}
}

// NewChannelTransport exposes records via a channel; it returns the transport,
// the read-only channel, and a close function that the caller should invoke
// during shutdown. Sends never block the loop: a full buffer drops the record.
func NewChannelTransport(name string, buffer int) (Transport, <-chan Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Record, buffer)
	t := &channelTransport{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type callbackTransport struct {
	name string
	fn   RecordHandler
}

func (t *callbackTransport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	if t.fn == nil {
		return domain.Failed(t.name, rec.Location, 0, fmt.Errorf("callback transport %q: nil handler", t.name))
	}
	if err := t.fn(ctx, recordFromDomain(rec)); err != nil {
		return domain.Failed(t.name, rec.Location, 0, err)
	}
	return domain.Succeeded(t.name, rec.Location, 0)
}

func (t *callbackTransport) Name() string { return t.name }

type channelTransport struct {
	name   string
	ch     chan Record
	closed chan struct{}
	mu     sync.RWMutex
	once   sync.Once
}

func (t *channelTransport) Send(_ context.Context, rec *domain.Record) domain.UploadOutcome {
	t.mu.RLock()
	defer t.mu.RUnlock()

	select {
	case <-t.closed:
		return domain.Failed(t.name, rec.Location, 0, ErrChannelTransportClosed)
	default:
	}

	select {
	case t.ch <- recordFromDomain(rec):
		return domain.Succeeded(t.name, rec.Location, 0)
	default:
		return domain.Failed(t.name, rec.Location, 0, ErrChannelFull)
	}
}

func (t *channelTransport) Name() string { return t.name }

func (t *channelTransport) close() {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		close(t.closed)
		close(t.ch)
	})
}

func recordFromDomain(rec *domain.Record) Record {
	out := Record{
		Location: rec.Location,
		Readings: make([]Reading, len(rec.Readings)),
	}
	if ts, ok := rec.Time.Time(); ok {
		out.Time = ts
	}
	for i, rd := range rec.Readings {
		out.Readings[i] = Reading{ID: rd.ID, Label: rd.Label, Kind: rd.Kind, Value: rd.Value}
	}
	return out
}
