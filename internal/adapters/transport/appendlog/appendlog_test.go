package appendlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ghalamif/airdaq/internal/domain"
)

func hallRecord(ts domain.Timestamp, value float64) *domain.Record {
	return &domain.Record{
		Location: "lab",
		Time:     ts,
		Readings: []domain.Reading{{ID: "Hall", Kind: domain.KindHall, Value: value}},
	}
}

func TestSendWithoutSessionIsNotConnected(t *testing.T) {
	srv := miniredis.RunT(t)

	tr, err := New("redis", Config{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	o := tr.Send(context.Background(), hallRecord(domain.Unknown, 1))
	if o.Success || o.Reason != domain.ReasonNotConnected || !errors.Is(o.Err, domain.ErrNotConnected) {
		t.Fatalf("expected not_connected, got %+v", o)
	}
	if srv.Exists(DefaultKey) {
		t.Fatalf("no write expected without a session")
	}
}

func TestSendAppendsEntryAndSeparator(t *testing.T) {
	srv := miniredis.RunT(t)
	tr, _ := New("redis", Config{Addr: srv.Addr()})
	if err := tr.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer tr.Close()

	ts := domain.At(time.Unix(1700000000, 0).UTC())
	o := tr.Send(context.Background(), hallRecord(ts, 12.5))
	if !o.Success || o.Target != DefaultKey {
		t.Fatalf("expected success on key data, got %+v", o)
	}

	got, err := srv.Get(DefaultKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := `{"Time":1700000000,"Hall":12.5};`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSendAccumulatesEntries(t *testing.T) {
	srv := miniredis.RunT(t)
	tr, _ := New("redis", Config{Addr: srv.Addr(), Key: "readings", Separator: "|"})
	if err := tr.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer tr.Close()

	tr.Send(context.Background(), hallRecord(domain.Unknown, 1))
	tr.Send(context.Background(), hallRecord(domain.Unknown, 2))

	got, _ := srv.Get("readings")
	if want := `{"Time":null,"Hall":1}|{"Time":null,"Hall":2}|`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestOpenRequiresPassword(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireAuth("secret")

	tr, _ := New("redis", Config{Addr: srv.Addr(), Password: "wrong"})
	if err := tr.Open(context.Background()); err == nil {
		t.Fatalf("expected auth failure")
	}
	if tr.Ready() {
		t.Fatalf("failed open must not leave a session")
	}

	tr, _ = New("redis", Config{Addr: srv.Addr(), Password: "secret"})
	if err := tr.Open(context.Background()); err != nil {
		t.Fatalf("open with password: %v", err)
	}
	defer tr.Close()
	if !tr.Ready() {
		t.Fatalf("expected session")
	}
}

func TestSendFailureWhenServerGone(t *testing.T) {
	srv := miniredis.RunT(t)
	tr, _ := New("redis", Config{Addr: srv.Addr()})
	if err := tr.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer tr.Close()
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o := tr.Send(ctx, hallRecord(domain.Unknown, 1))
	if o.Success || o.Reason != domain.ReasonTransportFailure {
		t.Fatalf("expected transport failure, got %+v", o)
	}
}
