// SPDX-License-Identifier: MIT

// Package history keeps an append-only log of meter readings in an
// embedded sqlite database, for range queries over past consumption.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// Reading is one recorded meter variable sample.
type Reading struct {
	Address   string    `json:"address"`
	Variable  string    `json:"variable"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the sqlite-backed readings log.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	address   TEXT    NOT NULL,
	variable  TEXT    NOT NULL,
	value     REAL    NOT NULL,
	ts        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_address_ts ON readings(address, ts);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`

// Open opens (or creates) the history database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// sqlite allows one writer; keep the pool at a single connection to
	// avoid SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: xlog.WithComponent("history"),
	}, nil
}

// Append records a batch of readings in one transaction.
func (s *Store) Append(ctx context.Context, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO readings (address, variable, value, ts) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("history: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.Address, r.Variable, r.Value, r.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("history: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	s.logger.Debug().Int("count", len(readings)).Msg("appended readings")
	return nil
}

// Query returns readings for one meter since the given time, oldest first.
// A zero since means everything; limit caps the result (0 means no cap).
func (s *Store) Query(ctx context.Context, address string, since time.Time, limit int) ([]Reading, error) {
	q := `SELECT address, variable, value, ts FROM readings WHERE address = ? AND ts >= ? ORDER BY ts ASC, id ASC`
	args := []any{address, since.UnixMilli()}
	if since.IsZero() {
		args[1] = int64(0)
	}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Reading
	for rows.Next() {
		var (
			r  Reading
			ts int64
		)
		if err := rows.Scan(&r.Address, &r.Variable, &r.Value, &ts); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}

// Prune deletes readings older than cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info().
			Int64("deleted", n).
			Time("cutoff", cutoff).
			Msg("pruned readings history")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
