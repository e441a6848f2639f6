// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
)

func webexCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:        "webex",
		Summary:     "Check the Webex gateway",
		Subcommands: []*cli.Command{webexWhoAmICommand(env)},
	}
}

func webexWhoAmICommand(env *environment) *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the bot identity behind the configured token",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("whoami", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			session, err := env.openSession(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			me, err := session.WhoAmI(env.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "%s (%s)\n", me.PrimaryEmail(), me.DisplayName)
			return nil
		},
	}
}
