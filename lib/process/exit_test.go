// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	var output bytes.Buffer
	report(&output, fmt.Errorf("config: loading %s: %w", "/etc/pmrelay.yaml", fmt.Errorf("no such file")))

	want := "error: config: loading /etc/pmrelay.yaml: no such file\n"
	if output.String() != want {
		t.Errorf("report wrote %q, want %q", output.String(), want)
	}
}
