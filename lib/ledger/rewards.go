// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Award is one credit to an address.
type Award struct {
	Amount    int64
	AwardedAt time.Time
}

// Balance is an address's reward record. An address never credited
// has Total 0 and empty History.
type Balance struct {
	Address string
	Total   int64
	History []Award
}

// Credit appends an award of amount at the given time.
func (s *Store) Credit(ctx context.Context, address string, amount int64, at time.Time) error {
	if err := validateCredit(address, amount); err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	return insertAward(conn, address, amount, at)
}

// Balance returns the reward record for address.
func (s *Store) Balance(ctx context.Context, address string) (Balance, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Balance{}, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	return readBalance(conn, address)
}

func validateCredit(address string, amount int64) error {
	if address == "" {
		return fmt.Errorf("ledger: credit has no address")
	}
	if amount <= 0 {
		return fmt.Errorf("ledger: credit amount must be positive, got %d", amount)
	}
	return nil
}

func insertAward(conn *sqlite.Conn, address string, amount int64, at time.Time) error {
	err := sqlitex.Execute(conn, `INSERT INTO awards (address, amount, awarded_at) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{address, amount, unixNanos(at)}})
	if err != nil {
		return fmt.Errorf("ledger: crediting %s: %w", address, err)
	}
	return nil
}

func readBalance(conn *sqlite.Conn, address string) (Balance, error) {
	balance := Balance{Address: address}
	err := sqlitex.Execute(conn, `SELECT amount, awarded_at FROM awards WHERE address = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{address},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				award := Award{
					Amount:    stmt.ColumnInt64(0),
					AwardedAt: fromUnixNanos(stmt.ColumnInt64(1)),
				}
				balance.History = append(balance.History, award)
				balance.Total += award.Amount
				return nil
			},
		})
	if err != nil {
		return Balance{}, fmt.Errorf("ledger: reading balance for %s: %w", address, err)
	}
	return balance, nil
}
