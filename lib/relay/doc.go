// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay connects report intake and inbound chat commands to
// the pending-request and reward ledgers.
//
// A [Dispatcher] owns both ledgers. Intake calls
// [Dispatcher.SubmitReturn] and [Dispatcher.SubmitRelocation], which
// forward the report (with its photo) to the administrator and, for
// relocations, record a pending request. The webhook handler calls
// [Dispatcher.HandleInboundMessage] with the id of a newly created
// message; the dispatcher fetches the message, classifies its text,
// and applies one of three commands:
//
//   - the reward query (from anyone) replies with the sender's total
//     and numbered award history
//   - approve (admin only) credits the target and clears its pending
//     request
//   - reject (admin only) clears the pending request without credit
//
// Everything else is ignored. Approve and reject resolve the target
// from the second word of the command, or from the single pending
// request when no target is named. Ledger changes are atomic;
// outbound notifications are sent afterwards, target first, and a
// failed send is logged without undoing the change.
package relay
