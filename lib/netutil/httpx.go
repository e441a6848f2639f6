// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds HTTP helpers shared by the Webex client and
// the relay's HTTP handlers.
//
// Webex response reads are bounded at [MaxResponseSize]. [WriteJSON] and
// [WriteMessage] produce the relay's JSON replies, including the
// {"message": "..."} shape used for intake errors.
package netutil

import (
	"encoding/json"
	"io"
	"net/http"
)

// MaxResponseSize bounds JSON API response reads: 16 MB. Webex message
// resources are a few kilobytes.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// MessageBody is the {"message": "..."} reply shape.
type MessageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already sent; an encode failure here means
	// the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": message} with the given status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageBody{Message: message})
}
