// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmrelay/pmrelay/lib/sqlitepool"
)

// ErrNoPending is returned when an address has no pending request.
var ErrNoPending = errors.New("ledger: no pending request")

// migrations is the ledger schema history. Append only.
var migrations = []string{`
CREATE TABLE pending_requests (
	address      TEXT PRIMARY KEY,
	request      BLOB NOT NULL,
	submitted_at INTEGER NOT NULL
);

CREATE TABLE awards (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	address    TEXT NOT NULL,
	amount     INTEGER NOT NULL CHECK (amount > 0),
	awarded_at INTEGER NOT NULL
);

CREATE INDEX awards_by_address ON awards (address, id);
`}

// Store is the SQLite-backed ledger. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file, or ":memory:". Required.
	Path string

	// PoolSize is passed to sqlitepool. Zero uses its default.
	PoolSize int

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Open opens (creating if needed) the ledger database.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   cfg.PoolSize,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

func unixNanos(t time.Time) int64 { return t.UnixNano() }

func fromUnixNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
