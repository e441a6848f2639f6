// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across the relay.
//
// [RequireReceive], [RequireSend] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never call time.After directly.
// Everything else in tests runs on a fake clock.
//
// [UniqueID] returns distinct identifiers for message ids and
// addresses without consulting the wall clock.
//
// [WriteFile] drops a fixture file into a test's temporary directory.
//
// Helpers call t.Fatalf on failure.
package testutil
