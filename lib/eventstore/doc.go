// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventstore keeps the calendar events read by the daily
// digest.
//
// Events live in a single JSON array on disk. Every operation reads
// or rewrites the whole file. The file may be edited by hand between
// runs, so reads accept JSONC (comments and trailing commas). Writes
// go to a temporary file in the same directory and are renamed into
// place, so a crash never leaves a truncated document behind.
//
// A Store serializes its own reads and writes. Separate processes
// writing the same file (the service and the CLI) are not
// coordinated; the last rename wins.
package eventstore
