package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/airdaq/internal/domain"
)

func TestSendInsertsOneRowPerReading(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	tr := New("history", db, "readings")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &domain.Record{
		Location: "lab",
		Time:     domain.At(at),
		Readings: []domain.Reading{
			{ID: "Hall", Kind: domain.KindHall, Value: 12},
			{ID: "Touch", Kind: domain.KindTouch, Value: 40},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO readings (location, sensor_id, kind, value, ts) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10)")
	mock.ExpectExec(expectedQuery).
		WithArgs("lab", "Hall", "Hall", 12.0, at, "lab", "Touch", "Touch", 40.0, at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if o := tr.Send(context.Background(), rec); !o.Success || o.Target != "readings" {
		t.Fatalf("expected success, got %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendUnknownTimeWritesNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	tr := New("history", db, "readings")
	rec := &domain.Record{Location: "lab", Readings: []domain.Reading{{ID: "Hall", Kind: domain.KindHall, Value: 1}}}

	mock.ExpectExec("INSERT INTO readings").
		WithArgs("lab", "Hall", "Hall", 1.0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if o := tr.Send(context.Background(), rec); !o.Success {
		t.Fatalf("expected success, got %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendExecFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	tr := New("history", db, "readings")
	mock.ExpectExec("INSERT INTO readings").WillReturnError(errors.New("connection refused"))

	rec := &domain.Record{Location: "lab", Readings: []domain.Reading{{ID: "Hall", Value: 1}}}
	o := tr.Send(context.Background(), rec)
	if o.Success || o.Reason != domain.ReasonTransportFailure {
		t.Fatalf("expected transport failure, got %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendNoReadings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	tr := New("history", db, "readings")
	if o := tr.Send(context.Background(), &domain.Record{Location: "lab"}); !o.Success {
		t.Fatalf("expected success for empty record, got %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{ConnString: "postgres://x"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	bad := Config{ConnString: "postgres://x", Table: "readings; DROP TABLE x"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected table name error")
	}
}
