// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger stores the relay's two pieces of mutable state in
// SQLite: the pending relocation requests awaiting an admin decision,
// and the reward ledger of approved requests.
//
// # Pending requests
//
// At most one [PendingRequest] exists per submitter address. A new
// report from the same address replaces the old one. Requests never
// expire. The request body is stored as a CBOR blob (lib/codec) so new
// report fields need no schema change.
//
// # Rewards
//
// Every credit is an [Award] row. A [Balance] is computed from those
// rows, so its Total always equals the sum of its History, and History
// is in insertion order. There is no debit.
//
// # Resolution
//
// [Store.Approve] and [Store.Reject] each run as one IMMEDIATE
// transaction: the pending request is read and deleted, and for
// approval the award is inserted, before the transaction commits. Two
// concurrent approvals of the same address therefore credit once; the
// loser sees [ErrNoPending].
//
// Path ":memory:" keeps everything in memory for the life of the Store.
// That database has a single connection, so reads and writes take
// turns.
package ledger
