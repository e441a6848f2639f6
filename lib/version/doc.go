// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information injected with -ldflags -X:
//
//   - [GitCommit]: short git SHA
//   - [GitDirty]: "true" when the tree had uncommitted changes
//   - [BuildTime]: UTC build timestamp
//   - [Version]: release version
//
// Development builds and tests see the defaults ("unknown",
// "0.1.0-dev").
//
//	go build -ldflags "-X github.com/pmrelay/pmrelay/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
