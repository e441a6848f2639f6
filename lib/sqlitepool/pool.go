// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// MemoryPath selects an in-memory database that lives as long as the
// pool.
const MemoryPath = ":memory:"

// memoryURI is what MemoryPath opens. The driver refuses a bare
// ":memory:" for pools.
const memoryURI = "file::memory:?mode=memory"

const defaultPoolSize = 4

// Config holds the parameters for opening a pool.
type Config struct {
	// Path is the database file, whose directory must exist, or
	// MemoryPath. Required.
	Path string

	// PoolSize is the number of connections. Zero means 4. Always 1
	// for MemoryPath, since every in-memory connection is its own
	// database.
	PoolSize int

	// Migrations are SQL scripts applied in order. The count applied
	// so far is kept in PRAGMA user_version, so appending a script
	// upgrades existing databases and earlier scripts never run twice.
	Migrations []string

	// Logger receives lifecycle messages. Nil discards them.
	Logger *slog.Logger
}

// Pool is a fixed set of prepared connections. Safe for concurrent
// use. A borrowed connection belongs to one goroutine until Put.
type Pool struct {
	inner  *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// Open creates the pool. Connections, and with them the migrations,
// are prepared on first Take.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	size := cfg.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}
	source := cfg.Path
	inMemory := cfg.Path == MemoryPath
	if inMemory {
		source = memoryURI
		size = 1
	}

	pool := &Pool{path: cfg.Path, logger: logger}
	inner, err := sqlitex.NewPool(source, sqlitex.PoolOptions{
		PoolSize: size,
		PrepareConn: func(conn *sqlite.Conn) error {
			if err := applyPragmas(conn, inMemory); err != nil {
				return err
			}
			return pool.migrate(conn, cfg.Migrations)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}
	pool.inner = inner

	logger.Info("sqlite pool opened", "path", cfg.Path, "pool_size", size)
	return pool, nil
}

// Take borrows a connection, waiting until one is free or ctx ends.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a borrowed connection. Nil is ignored.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn != nil {
		p.inner.Put(conn)
	}
}

// Path is the path the pool was opened with.
func (p *Pool) Path() string { return p.path }

// Close waits for borrowed connections and closes them all.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

func applyPragmas(conn *sqlite.Conn, inMemory bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate brings the database up to len(migrations). The version is
// read inside an IMMEDIATE transaction, so connections preparing at
// the same time apply each script once between them.
func (p *Pool) migrate(conn *sqlite.Conn, migrations []string) (err error) {
	if len(migrations) == 0 {
		return nil
	}

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlitepool: migration transaction: %w", err)
	}
	defer endTransaction(&err)

	var version int
	err = sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("sqlitepool: reading user_version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("sqlitepool: %s is at schema version %d, newer than this binary's %d",
			p.path, version, len(migrations))
	}

	for index := version; index < len(migrations); index++ {
		if err = sqlitex.ExecuteScript(conn, migrations[index], nil); err != nil {
			return fmt.Errorf("sqlitepool: migration %d: %w", index+1, err)
		}
		p.logger.Info("sqlite migration applied", "path", p.path, "version", index+1)
	}
	if version < len(migrations) {
		err = sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version=%d", len(migrations)), nil)
		if err != nil {
			return fmt.Errorf("sqlitepool: setting user_version: %w", err)
		}
	}
	return nil
}
