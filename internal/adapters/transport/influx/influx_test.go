package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/airdaq/internal/domain"
)

type capture struct {
	status int
	lines  chan string
	query  chan string
}

func newInflux(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{status: status, lines: make(chan string, 4), query: make(chan string, 4)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		c.lines <- string(b)
		c.query <- r.URL.RawQuery
		if c.status >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized access"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func cfgFor(url string) Config {
	return Config{URL: url, Token: "tok", Org: "home", Bucket: "air"}
}

func TestSendWritesPoint(t *testing.T) {
	srv, c := newInflux(t, http.StatusNoContent)
	tr, err := New("influx", cfgFor(srv.URL), 5*time.Second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer tr.Close()

	rec := &domain.Record{
		Location: "kitchen",
		Time:     domain.At(time.Unix(1700000000, 0)),
		Readings: []domain.Reading{
			{ID: "Temperature", Kind: domain.KindTemperature, Value: 21.5},
			{ID: "Humidity", Kind: domain.KindHumidity, Value: 40},
		},
	}
	o := tr.Send(context.Background(), rec)
	if !o.Success || o.Target != "air/airdaq" {
		t.Fatalf("expected success, got %+v", o)
	}

	line := strings.TrimSpace(<-c.lines)
	if want := "airdaq,location=kitchen Temperature=21.5,Humidity=40 1700000000000000000"; line != want {
		t.Fatalf("expected %q, got %q", want, line)
	}
	q := <-c.query
	if !strings.Contains(q, "org=home") || !strings.Contains(q, "bucket=air") {
		t.Fatalf("unexpected query %s", q)
	}
}

func TestUnknownTimeOmitsTimestamp(t *testing.T) {
	rec := &domain.Record{
		Location: "lab",
		Readings: []domain.Reading{{ID: "Hall", Kind: domain.KindHall, Value: 3}},
	}
	p := Point("m", rec)
	if !p.Time().IsZero() {
		t.Fatalf("expected zero time, got %v", p.Time())
	}
	tags := p.TagList()
	if len(tags) != 2 || tags[1].Key != "kind" || tags[1].Value != "Hall" {
		t.Fatalf("expected location and kind tags, got %+v", tags)
	}
}

func TestSendServerError(t *testing.T) {
	srv, c := newInflux(t, http.StatusUnauthorized)
	tr, _ := New("influx", cfgFor(srv.URL), time.Second)
	defer tr.Close()

	rec := &domain.Record{Location: "lab", Readings: []domain.Reading{{ID: "Hall", Value: 1}}}
	o := tr.Send(context.Background(), rec)
	if o.Success || o.Reason != domain.ReasonTransportFailure {
		t.Fatalf("expected transport failure, got %+v", o)
	}
	<-c.lines
	select {
	case <-c.lines:
		t.Fatalf("blocking write must not retry")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (&Config{URL: "http://x"}).Validate(); err == nil {
		t.Fatalf("expected error for incomplete config")
	}
}

func TestRequestTimeoutRoundsUp(t *testing.T) {
	cases := map[time.Duration]uint{
		time.Nanosecond:         1,
		500 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		10 * time.Second:        10,
	}
	for in, want := range cases {
		if got := requestTimeoutSeconds(in); got != want {
			t.Errorf("%s: expected %ds, got %ds", in, want, got)
		}
	}
}
