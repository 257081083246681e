package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"autoenter/internal/model"
	"autoenter/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// RecordEntry inserts an entry attempt and populates its ID.
func (s *SQLite) RecordEntry(ctx context.Context, e *model.Entry) error {
	if e.EnteredAt.IsZero() {
		e.EnteredAt = time.Now().UTC()
	}
	var balance sql.NullInt64
	if e.BalanceAfter != nil {
		balance = sql.NullInt64{Int64: int64(*e.BalanceAfter), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (giveaway_id, name, price, status, balance_after, entered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.GiveawayID, e.Name, e.Price, e.Status, balance, e.EnteredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListEntries returns the most recent entries, newest first.
func (s *SQLite) ListEntries(ctx context.Context, limit int) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, giveaway_id, name, price, status, balance_after, entered_at
		 FROM entries ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (model.Entry, error) {
	var e model.Entry
	var balance sql.NullInt64
	var entered string
	if err := row.Scan(&e.ID, &e.GiveawayID, &e.Name, &e.Price, &e.Status, &balance, &entered); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	if balance.Valid {
		v := int(balance.Int64)
		e.BalanceAfter = &v
	}
	e.EnteredAt, _ = time.Parse(timeLayout, entered)
	return e, nil
}
