// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:4000". Port 0
	// picks a free port; read it from Addr after Ready.
	Address string

	// Handler serves every request.
	Handler http.Handler

	// ShutdownTimeout bounds how long Serve waits for in-flight
	// requests after ctx is cancelled. Zero means 10s.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// HTTPServer owns a TCP listener and an http.Server for the lifetime
// of one Serve call.
type HTTPServer struct {
	config HTTPServerConfig
	ready  chan struct{}
	addr   net.Addr
}

// NewHTTPServer returns a server for config. Address, Handler and
// Logger are required; a missing one is a programming error and
// panics.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	switch {
	case config.Address == "":
		panic("service: HTTPServerConfig.Address is required")
	case config.Handler == nil:
		panic("service: HTTPServerConfig.Handler is required")
	case config.Logger == nil:
		panic("service: HTTPServerConfig.Logger is required")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	return &HTTPServer{config: config, ready: make(chan struct{})}
}

// Ready is closed once the listener is bound.
func (s *HTTPServer) Ready() <-chan struct{} { return s.ready }

// Addr is the bound address. Valid after Ready is closed.
func (s *HTTPServer) Addr() net.Addr { return s.addr }

// Serve listens and serves until ctx is cancelled, then drains. It
// returns nil after a clean drain, and an error if the listener could
// not be bound, the server failed, or the drain timed out.
func (s *HTTPServer) Serve(ctx context.Context) error {
	logger := s.config.Logger

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("service: listen %s: %w", s.config.Address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	// Uploads carry a photo, hence the generous body timeouts.
	server := &http.Server{
		Handler:           s.config.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	failed := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		failed <- err
	}()
	logger.Info("http server listening", "address", s.addr.String())

	select {
	case err := <-failed:
		return fmt.Errorf("service: http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("http server draining", "timeout", s.config.ShutdownTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("service: http shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
