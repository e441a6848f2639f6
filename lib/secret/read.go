// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath loads the secret stored in path. Leading and trailing
// whitespace, including the usual final newline, is dropped. The
// caller must Close the result.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "" {
		return nil, fmt.Errorf("secret: no path given")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	defer wipe(raw)

	buffer, err := seal(bytes.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("secret: %s: %w", path, err)
	}
	return buffer, nil
}
