// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/pmrelay/pmrelay/lib/codec"
)

// PendingRequest is a relocation report awaiting an admin decision.
type PendingRequest struct {
	Address     string    `cbor:"address"`
	Latitude    float64   `cbor:"latitude"`
	Longitude   float64   `cbor:"longitude"`
	Message     string    `cbor:"message,omitempty"`
	SubmittedAt time.Time `cbor:"submitted_at"`
	ReportID    string    `cbor:"report_id,omitempty"`
}

// PutPending stores request under request.Address, replacing any
// earlier request from the same address.
func (s *Store) PutPending(ctx context.Context, request PendingRequest) error {
	if request.Address == "" {
		return fmt.Errorf("ledger: pending request has no address")
	}
	blob, err := codec.Marshal(request)
	if err != nil {
		return fmt.Errorf("ledger: encoding pending request for %s: %w", request.Address, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO pending_requests (address, request, submitted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			request = excluded.request,
			submitted_at = excluded.submitted_at`,
		&sqlitex.ExecOptions{Args: []any{request.Address, blob, unixNanos(request.SubmittedAt)}})
	if err != nil {
		return fmt.Errorf("ledger: storing pending request for %s: %w", request.Address, err)
	}
	return nil
}

// GetPending returns the request for address. The bool is false when
// there is none.
func (s *Store) GetPending(ctx context.Context, address string) (PendingRequest, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return PendingRequest{}, false, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	return getPending(conn, address)
}

// DeletePending removes the request for address. The bool reports
// whether one existed.
func (s *Store) DeletePending(ctx context.Context, address string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	if err := deletePending(conn, address); err != nil {
		return false, err
	}
	return conn.Changes() > 0, nil
}

// CountPending returns the number of pending requests.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM pending_requests`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("ledger: counting pending requests: %w", err)
	}
	return count, nil
}

// SingleAddress returns the address of the only pending request. The
// bool is false when there are zero or several.
func (s *Store) SingleAddress(ctx context.Context) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	var addresses []string
	err = sqlitex.Execute(conn, `SELECT address FROM pending_requests LIMIT 2`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			addresses = append(addresses, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("ledger: reading pending addresses: %w", err)
	}
	if len(addresses) != 1 {
		return "", false, nil
	}
	return addresses[0], true, nil
}

// ListPending returns every pending request, oldest submission first.
func (s *Store) ListPending(ctx context.Context) ([]PendingRequest, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	var requests []PendingRequest
	err = sqlitex.Execute(conn, `SELECT request FROM pending_requests ORDER BY submitted_at, address`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			request, err := decodePending(stmt)
			if err != nil {
				return err
			}
			requests = append(requests, request)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: listing pending requests: %w", err)
	}
	return requests, nil
}

// PendingBlob returns the stored CBOR encoding of the request for
// address, for diagnostics.
func (s *Store) PendingBlob(ctx context.Context, address string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	defer s.pool.Put(conn)

	var blob []byte
	err = sqlitex.Execute(conn, `SELECT request FROM pending_requests WHERE address = ?`, &sqlitex.ExecOptions{
		Args: []any{address},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			blob = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, blob)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: reading pending request for %s: %w", address, err)
	}
	if blob == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoPending, address)
	}
	return blob, nil
}

func getPending(conn *sqlite.Conn, address string) (PendingRequest, bool, error) {
	var (
		request PendingRequest
		found   bool
	)
	err := sqlitex.Execute(conn, `SELECT request FROM pending_requests WHERE address = ?`, &sqlitex.ExecOptions{
		Args: []any{address},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			decoded, err := decodePending(stmt)
			if err != nil {
				return err
			}
			request, found = decoded, true
			return nil
		},
	})
	if err != nil {
		return PendingRequest{}, false, fmt.Errorf("ledger: reading pending request for %s: %w", address, err)
	}
	return request, found, nil
}

func deletePending(conn *sqlite.Conn, address string) error {
	err := sqlitex.Execute(conn, `DELETE FROM pending_requests WHERE address = ?`, &sqlitex.ExecOptions{
		Args: []any{address},
	})
	if err != nil {
		return fmt.Errorf("ledger: deleting pending request for %s: %w", address, err)
	}
	return nil
}

func decodePending(stmt *sqlite.Stmt) (PendingRequest, error) {
	blob := make([]byte, stmt.ColumnLen(0))
	stmt.ColumnBytes(0, blob)

	var request PendingRequest
	if err := codec.Unmarshal(blob, &request); err != nil {
		return PendingRequest{}, fmt.Errorf("decoding pending request: %w", err)
	}
	return request, nil
}
