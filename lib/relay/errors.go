// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "errors"

// ValidationError reports a missing or malformed intake field. The
// HTTP layer maps it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Field + " is required"
	}
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

var (
	// errNoTarget means approve/reject named no target and nothing is
	// pending.
	errNoTarget = errors.New("relay: no pending request to process")

	// errAmbiguousTarget means approve/reject named no target and more
	// than one request is pending.
	errAmbiguousTarget = errors.New("relay: multiple pending requests")
)
