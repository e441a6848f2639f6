// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens zombiezen.com/go/sqlite connection pools
// with the relay's pragmas and schema migrations.
//
// File databases run in WAL mode with synchronous=NORMAL and a 5s busy
// timeout, so the pmrelay CLI can read the ledger while the service
// writes it. [MemoryPath] gives an in-memory database behind a single
// connection, so every caller is serialized and reads get no
// parallelism.
//
// Schemas are declared as an ordered list of migration scripts; see
// [Config.Migrations].
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       "/var/lib/pmrelay/ledger.db",
//	    Migrations: []string{createTables, addIndexes},
//	    Logger:     logger,
//	})
package sqlitepool
