// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates the relay's standard logger: JSON on stderr at
// Info level. It is also installed as the slog default.
func NewLogger() *slog.Logger {
	logger := newJSONLogger(os.Stderr, slog.LevelInfo)
	slog.SetDefault(logger)
	return logger
}

func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
