// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/config"
	"github.com/pmrelay/pmrelay/lib/process"
	"github.com/pmrelay/pmrelay/lib/service"
	"github.com/pmrelay/pmrelay/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("pmrelay-service", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to pmrelay.yaml (default: $PMRELAY_CONFIG)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Printf("pmrelay-service %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := service.NewLogger()

	relayService, err := newRelayService(ctx, cfg, clock.Real(), logger)
	if err != nil {
		return err
	}
	defer relayService.Close()

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Server.Listen,
		Handler:         relayService.handler,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("pmrelay service running",
			"address", httpServer.Addr().String(),
			"environment", cfg.Environment,
			"version", version.Info(),
		)
	case err := <-httpDone:
		return fmt.Errorf("http server: %w", err)
	}

	digestDone := make(chan error, 1)
	go func() {
		digestDone <- relayService.digest.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-httpDone; err != nil {
		logger.Error("http server error", "error", err)
	}
	<-digestDone
	return nil
}

// loadConfig reads path, or $PMRELAY_CONFIG when path is empty, and
// validates the result.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
