// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/config"
	"github.com/pmrelay/pmrelay/lib/secret"
	"github.com/pmrelay/pmrelay/lib/version"
	"github.com/pmrelay/pmrelay/messaging"
)

// environment is what every command runs against. Tests substitute
// the writer and clock.
type environment struct {
	ctx    context.Context
	stdout io.Writer
	clock  clock.Clock
	logger *slog.Logger
}

func root(env *environment) *cli.Command {
	return &cli.Command{
		Name: "pmrelay",
		Description: `pmrelay: operate a PM Relay deployment.

Manage the calendar events the daily digest reads, send a digest
immediately, inspect reward balances and pending relocation reports,
and check the Webex bot token.`,
		Subcommands: []*cli.Command{
			eventsCommand(env),
			digestCommand(env),
			ledgerCommand(env),
			webexCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(env.stdout, "pmrelay %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// configFlag registers --config on flagSet, defaulting to
// $PMRELAY_CONFIG.
func configFlag(flagSet *pflag.FlagSet, path *string) {
	flagSet.StringVar(path, "config", os.Getenv("PMRELAY_CONFIG"),
		"path to pmrelay.yaml (default $PMRELAY_CONFIG)")
}

// loadConfig reads the configuration a command operates on. The full
// service validation is not applied: storage commands must work on a
// host that holds no Webex secrets.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("no configuration: pass --config or set PMRELAY_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession authenticates to Webex with the configured bot token.
func (env *environment) openSession(cfg *config.Config) (*messaging.Session, error) {
	token, err := secret.ReadFromPath(cfg.Webex.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading webex token from %s: %w", cfg.Webex.TokenFile, err)
	}
	client, err := messaging.NewClient(messaging.ClientConfig{
		BaseURL: cfg.Webex.BaseURL,
		Logger:  env.logger,
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	session, err := client.SessionFromBuffer(token)
	if err != nil {
		token.Close()
		return nil, err
	}
	return session, nil
}
