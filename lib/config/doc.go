// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the relay's YAML configuration.
//
// Configuration comes from exactly one file, named by the
// PMRELAY_CONFIG environment variable ([Load]) or a --config flag
// ([LoadFile]). There is no search path and no per-field environment
// override.
//
// The file may carry development, staging and production sections
// that override base values when [Config].Environment matches.
// Production additionally requires a webhook secret.
//
// After loading, ${HOME}, ${PMRELAY_ROOT} and ${VAR:-default} are
// expanded in path fields and in server.listen, so a deployment can
// write listen: ":${PORT:-4000}".
//
// Secrets never appear in the file itself; the file names the paths
// they are read from.
package config
