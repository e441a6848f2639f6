// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite/sqlitex"
)

// Approve resolves the pending request for address in one transaction:
// the request is removed and amount is credited at the given time.
// Returns the resolved request and the balance after the credit, or
// ErrNoPending with both ledgers untouched.
func (s *Store) Approve(ctx context.Context, address string, amount int64, at time.Time) (request PendingRequest, balance Balance, err error) {
	if err := validateCredit(address, amount); err != nil {
		return PendingRequest{}, Balance{}, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return PendingRequest{}, Balance{}, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return PendingRequest{}, Balance{}, fmt.Errorf("ledger: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	request, found, err := getPending(conn, address)
	if err != nil {
		return PendingRequest{}, Balance{}, err
	}
	if !found {
		return PendingRequest{}, Balance{}, fmt.Errorf("%w for %s", ErrNoPending, address)
	}
	if err = insertAward(conn, address, amount, at); err != nil {
		return PendingRequest{}, Balance{}, err
	}
	if err = deletePending(conn, address); err != nil {
		return PendingRequest{}, Balance{}, err
	}
	balance, err = readBalance(conn, address)
	if err != nil {
		return PendingRequest{}, Balance{}, err
	}

	s.logger.Info("pending request approved",
		"address", address,
		"amount", amount,
		"total", balance.Total,
	)
	return request, balance, nil
}

// Reject removes the pending request for address without crediting.
// Returns the removed request, or ErrNoPending.
func (s *Store) Reject(ctx context.Context, address string) (request PendingRequest, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return PendingRequest{}, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return PendingRequest{}, fmt.Errorf("ledger: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	request, found, err := getPending(conn, address)
	if err != nil {
		return PendingRequest{}, err
	}
	if !found {
		return PendingRequest{}, fmt.Errorf("%w for %s", ErrNoPending, address)
	}
	if err = deletePending(conn, address); err != nil {
		return PendingRequest{}, err
	}

	s.logger.Info("pending request rejected", "address", address)
	return request, nil
}
