// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Pmrelay is the operator CLI for a PM Relay deployment. It works
// directly on the files named in the service configuration, so it can
// run beside a live service or while the service is down.
//
//	pmrelay events add --email E --date YYYY-MM-DD --event TEXT
//	pmrelay events list [--date YYYY-MM-DD] [--json]
//	pmrelay digest run [--date YYYY-MM-DD]
//	pmrelay ledger balance <email> [--json]
//	pmrelay ledger pending [<email>] [--json] [--raw]
//	pmrelay webex whoami
//	pmrelay version
//
// Every command reads the configuration file named by --config or
// PMRELAY_CONFIG.
package main
