// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

// DateLayout is the calendar-day format of Event.Date.
const DateLayout = "2006-01-02"

// Event is one calendar entry owned by a user address.
type Event struct {
	Email string `json:"email"`
	Date  string `json:"date"`
	Event string `json:"event"`
}

// Validate reports the first missing field.
func (e Event) Validate() error {
	switch {
	case e.Email == "":
		return &MissingFieldError{Field: "email"}
	case e.Date == "":
		return &MissingFieldError{Field: "date"}
	case e.Event == "":
		return &MissingFieldError{Field: "event"}
	}
	return nil
}

// MissingFieldError is returned by Validate and Append.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "eventstore: " + e.Field + " is required"
}

// Store is a file-backed event list. Safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// Open returns a Store for path. The file need not exist yet; its
// parent directory must.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("eventstore: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Append validates event and adds it to the end of the file.
// Duplicates are kept.
func (s *Store) Append(event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.read()
	if err != nil {
		return err
	}
	events = append(events, event)
	if err := s.write(events); err != nil {
		return err
	}

	s.logger.Info("calendar event stored",
		"email", event.Email,
		"date", event.Date,
		"count", len(events),
	)
	return nil
}

// All returns every stored event in file order.
func (s *Store) All() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// OnDate returns the events whose Date equals day exactly.
func (s *Store) OnDate(day string) ([]Event, error) {
	events, err := s.All()
	if err != nil {
		return nil, err
	}

	var matched []Event
	for _, event := range events {
		if event.Date == day {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

// read returns the decoded file. A missing or empty file is an empty
// list. Caller holds s.mu.
func (s *Store) read() ([]Event, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: reading %s: %w", s.path, err)
	}

	stripped := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(stripped)) == 0 {
		return nil, nil
	}

	var events []Event
	if err := json.Unmarshal(stripped, &events); err != nil {
		return nil, fmt.Errorf("eventstore: parsing %s: %w", s.path, err)
	}
	return events, nil
}

// write replaces the file with events. Caller holds s.mu.
func (s *Store) write(events []Event) error {
	if events == nil {
		events = []Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("eventstore: encoding events: %w", err)
	}
	data = append(data, '\n')

	temporary, err := os.CreateTemp(filepath.Dir(s.path), ".events-*.tmp")
	if err != nil {
		return fmt.Errorf("eventstore: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("eventstore: writing temporary file: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("eventstore: syncing temporary file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("eventstore: closing temporary file: %w", err)
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		return fmt.Errorf("eventstore: setting file mode: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		return fmt.Errorf("eventstore: renaming into place: %w", err)
	}

	success = true
	return nil
}
