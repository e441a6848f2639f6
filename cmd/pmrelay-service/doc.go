// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// pmrelay-service is the long-running PM Relay process.
//
// It serves the report and event intake API, receives Webex webhook
// deliveries for newly created messages, and runs the daily event
// digest. Configuration comes from the YAML file named by --config or
// PMRELAY_CONFIG.
//
// Routes:
//
//	POST /api/reports/return      multipart: email, latitude, longitude, photo
//	POST /api/reports/relocation  multipart: email, latitude, longitude, photo, message
//	POST /api/events              JSON: {"email", "date", "event"}
//	POST /webhooks/webex          Webex "messages created" notifications
//	GET  /healthz                 liveness
//
// The intake API allows every origin.
package main
