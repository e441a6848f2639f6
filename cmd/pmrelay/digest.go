// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/digest"
	"github.com/pmrelay/pmrelay/lib/eventstore"
)

func digestCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:        "digest",
		Summary:     "Run the daily event digest",
		Subcommands: []*cli.Command{digestRunCommand(env)},
	}
}

func digestRunCommand(env *environment) *cli.Command {
	var (
		configPath string
		date       string
	)
	return &cli.Command{
		Name:    "run",
		Summary: "Send today's reminders now",
		Description: `Send one reminder per calendar event dated today, exactly as the
scheduled digest does. "Today" is evaluated in digest.timezone. The
service's own schedule is unaffected, so running this on a day the
service will also fire sends the reminders twice.`,
		Examples: []cli.Example{
			{Description: "Resend a missed digest", Command: "pmrelay digest run --date 2026-10-17"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.StringVar(&date, "date", "", "day to send, YYYY-MM-DD (default today)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if date != "" {
				if _, err := time.Parse(eventstore.DateLayout, date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			schedule, err := cfg.DigestSchedule()
			if err != nil {
				return err
			}
			events, err := eventstore.Open(cfg.Storage.EventsFile, env.logger)
			if err != nil {
				return err
			}
			session, err := env.openSession(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			scheduler, err := digest.New(digest.Config{
				Events:   events,
				Sender:   session,
				Schedule: schedule,
				Clock:    env.clock,
				Logger:   env.logger,
			})
			if err != nil {
				return err
			}
			if date == "" {
				date = scheduler.Today()
			}

			result, err := scheduler.RunOnce(env.ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "%s: %d events, %d sent, %d failed\n",
				result.Day, result.Matched, result.Sent, result.Failed)
			if result.Failed > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
