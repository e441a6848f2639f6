// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package service holds the scaffolding the pmrelay-service binary is
// assembled from: a JSON slog logger installed as the default, an HTTP
// server with a readiness channel and context-driven graceful
// shutdown, and webhook HMAC verification.
//
// Binaries compose these pieces in their own main() rather than
// through a framework.
package service
