// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the relay's CBOR configuration.
//
// JSON is used on every external surface (Webex, intake API, event
// file). CBOR is used for blobs the relay stores for itself, such as
// pending relocation requests in the ledger database. The encoder uses
// Core Deterministic Encoding so the same value always yields the same
// bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Internal-only types carry `cbor` struct tags. Types that are also
// served as JSON carry only `json` tags; fxamacker/cbor falls back to
// them when no `cbor` tag is present.
package codec
