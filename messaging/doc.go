// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is a client for the parts of the Webex Messages
// REST API the relay uses.
//
// [Client] holds the API base URL and HTTP transport. [Session] adds
// the bot access token, kept in a [secret.Buffer], and performs the
// authenticated calls:
//
//   - [Session.SendMessage]: POST /messages to a person by email, as
//     JSON or, with an attachment, as multipart/form-data
//   - [Session.GetMessage]: GET /messages/{id}, used to resolve a
//     webhook notification into sender and text
//   - [Session.WhoAmI]: GET /people/me, identifying the bot so its own
//     messages can be ignored
//
// Non-2xx responses become [*APIError] carrying the HTTP status,
// the Webex message, and the tracking id Webex support asks for.
// [IsStatus] tests for a particular status.
//
// [WebhookEvent] is the envelope Webex POSTs to a registered webhook.
package messaging
