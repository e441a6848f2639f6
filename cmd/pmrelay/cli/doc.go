// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command-tree framework behind the pmrelay
// operator CLI: nested [Command] values with lazily built pflag sets,
// typo suggestions for commands and flags, and structured help.
package cli
