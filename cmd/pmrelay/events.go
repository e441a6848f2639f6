// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/eventstore"
)

func eventsCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "events",
		Summary: "Manage calendar events read by the daily digest",
		Subcommands: []*cli.Command{
			eventsAddCommand(env),
			eventsListCommand(env),
		},
	}
}

func eventsAddCommand(env *environment) *cli.Command {
	var (
		configPath string
		event      eventstore.Event
	)
	return &cli.Command{
		Name:    "add",
		Summary: "Append a calendar event",
		Usage:   "pmrelay events add --email EMAIL --date YYYY-MM-DD --event TEXT",
		Examples: []cli.Example{{
			Description: "Remind a user of a pickup",
			Command:     `pmrelay events add --email alice@example.com --date 2026-10-20 --event "Scooter pickup at gate 3"`,
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.StringVar(&event.Email, "email", "", "address the reminder is sent to")
			flagSet.StringVar(&event.Date, "date", "", "calendar day, YYYY-MM-DD")
			flagSet.StringVar(&event.Event, "event", "", "reminder text")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if err := event.Validate(); err != nil {
				return err
			}
			store, err := env.openEvents(configPath)
			if err != nil {
				return err
			}
			if err := store.Append(event); err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "event saved for %s on %s\n", event.Email, event.Date)
			return nil
		},
	}
}

func eventsListCommand(env *environment) *cli.Command {
	var (
		configPath string
		date       string
		jsonOutput bool
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List calendar events",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.StringVar(&date, "date", "", "only events on this day, YYYY-MM-DD")
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
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

			store, err := env.openEvents(configPath)
			if err != nil {
				return err
			}
			var events []eventstore.Event
			if date != "" {
				events, err = store.OnDate(date)
			} else {
				events, err = store.All()
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return cli.WriteJSON(env.stdout, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(env.stdout, "no events")
				return nil
			}
			writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "DATE\tEMAIL\tEVENT")
			for _, event := range events {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", event.Date, event.Email, event.Event)
			}
			return writer.Flush()
		},
	}
}

func (env *environment) openEvents(configPath string) (*eventstore.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return eventstore.Open(cfg.Storage.EventsFile, env.logger)
}
