// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// recordingT captures Fatalf without stopping the calling test.
type recordingT struct {
	failed  bool
	message string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "approved"
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != "approved" {
		t.Errorf("RequireReceive = %q, want %q", got, "approved")
	}
}

func TestRequireSend(t *testing.T) {
	ch := make(chan int, 1)
	RequireSend(t, ch, 100, time.Second, "buffered send")
	if got := <-ch; got != 100 {
		t.Errorf("received %d, want 100", got)
	}
}

func TestRequireClosedTimesOut(t *testing.T) {
	recorder := &recordingT{}
	RequireClosed(recorder, make(chan struct{}), 10*time.Millisecond, "server %s", "ready")
	if !recorder.failed {
		t.Fatal("RequireClosed on an open channel did not fail")
	}
	if !strings.Contains(recorder.message, "server ready") {
		t.Errorf("failure message = %q, want it to contain %q", recorder.message, "server ready")
	}
}

func TestUniqueIDDistinct(t *testing.T) {
	first := UniqueID("msg")
	second := UniqueID("msg")
	if first == second {
		t.Errorf("UniqueID returned %q twice", first)
	}
	if !strings.HasPrefix(first, "msg-") {
		t.Errorf("UniqueID = %q, want prefix %q", first, "msg-")
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "events.json", `[]`)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("content = %q, want %q", data, `[]`)
	}
}
