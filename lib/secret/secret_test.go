// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFromPathTrims(t *testing.T) {
	for _, content := range []string{
		"bot-token",
		"bot-token\n",
		"  bot-token \r\n",
	} {
		buffer, err := ReadFromPath(writeSecret(t, content))
		if err != nil {
			t.Fatalf("ReadFromPath(%q): %v", content, err)
		}
		if got := buffer.String(); got != "bot-token" {
			t.Errorf("ReadFromPath(%q) = %q", content, got)
		}
		buffer.Close()
	}
}

func TestReadFromPathErrors(t *testing.T) {
	if _, err := ReadFromPath(""); err == nil {
		t.Error("empty path accepted")
	}
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file accepted")
	}
	_, err := ReadFromPath(writeSecret(t, " \n\n"))
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("blank file: err = %v", err)
	}
}

func TestNewFromStringBytes(t *testing.T) {
	buffer, err := NewFromString("webhook-secret")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	defer buffer.Close()

	if string(buffer.Bytes()) != "webhook-secret" {
		t.Errorf("Bytes = %q", buffer.Bytes())
	}
	if _, err := NewFromString(""); err == nil {
		t.Error("empty secret accepted")
	}
}

func TestSealWipesSource(t *testing.T) {
	source := []byte("bot-token")
	buffer, err := seal(source)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	defer buffer.Close()

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d after seal", index, value)
		}
	}
	if buffer.String() != "bot-token" {
		t.Errorf("String = %q", buffer.String())
	}
}

func TestCloseIdempotentAndPanicsAfter(t *testing.T) {
	buffer, err := NewFromString("bot-token")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recovered := recover(); recovered != ErrClosed {
			t.Errorf("recover() = %v, want ErrClosed", recovered)
		}
	}()
	buffer.Bytes()
}
