// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the Webex bot token and the webhook signing
// secret out of the Go heap.
//
// A [Buffer] lives in an anonymous mapping that is locked into RAM and
// marked MADV_DONTDUMP. [ReadFromPath] loads a secret file named in the
// configuration into a Buffer and wipes the heap copy it read through.
package secret
