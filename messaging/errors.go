// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from Webex. Use errors.As to inspect
// it:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound { ... }
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`

	// Message is the human-readable description from Webex.
	Message string `json:"message"`

	// TrackingID identifies the request in Webex's logs.
	TrackingID string `json:"trackingId"`

	// Details holds per-field descriptions when Webex returns them.
	Details []APIErrorDetail `json:"errors,omitempty"`
}

// APIErrorDetail is one entry of an error response's "errors" list.
type APIErrorDetail struct {
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	message := e.Message
	if message == "" && len(e.Details) > 0 {
		message = e.Details[0].Description
	}
	if e.TrackingID != "" {
		return fmt.Sprintf("webex: %d: %s (tracking id %s)", e.StatusCode, message, e.TrackingID)
	}
	return fmt.Sprintf("webex: %d: %s", e.StatusCode, message)
}

// IsStatus reports whether err is an *APIError with the given HTTP
// status.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}
	return false
}
