// Package sqlstore keeps a reading history in a Postgres or TimescaleDB table.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ghalamif/airdaq/internal/domain"
	"github.com/ghalamif/airdaq/internal/ports"
)

type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func (c *Config) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "readings"
	}
}

func (c *Config) Validate() error {
	if c.ConnString == "" {
		return errors.New("conn_string is required")
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	return nil
}

type Transport struct {
	name  string
	db    *sql.DB
	table string
}

// Open connects through lib/pq. The pool dials lazily.
func Open(name string, cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sqlstore %s: %w", name, err)
	}
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("sqlstore %s: %w", name, err)
	}
	db.SetMaxOpenConns(2)
	return New(name, db, cfg.Table), nil
}

func New(name string, db *sql.DB, table string) *Transport {
	return &Transport{name: name, db: db, table: table}
}

func (t *Transport) Name() string { return t.name }

// Send inserts one row per reading in a single statement.
func (t *Transport) Send(ctx context.Context, rec *domain.Record) domain.UploadOutcome {
	if len(rec.Readings) == 0 {
		return domain.Succeeded(t.name, t.table, 0)
	}

	var ts any
	if at, ok := rec.Time.Time(); ok {
		ts = at
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.table)
	b.WriteString(" (location, sensor_id, kind, value, ts) VALUES ")

	args := make([]any, 0, len(rec.Readings)*5)
	for i, rd := range rec.Readings {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))
		args = append(args, rec.Location, rd.ID, string(rd.Kind), rd.Value, ts)
	}

	if _, err := t.db.ExecContext(ctx, b.String(), args...); err != nil {
		return domain.Failed(t.name, t.table, 0, fmt.Errorf("insert: %w", err))
	}
	return domain.Succeeded(t.name, t.table, 0)
}

func (t *Transport) Close() error { return t.db.Close() }

var _ ports.Transport = (*Transport)(nil)
