// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/codec"
	"github.com/pmrelay/pmrelay/lib/ledger"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func ledgerCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "ledger",
		Summary: "Inspect reward balances and pending relocation reports",
		Subcommands: []*cli.Command{
			ledgerBalanceCommand(env),
			ledgerPendingCommand(env),
		},
	}
}

// balanceOutput is the --json form of a balance.
type balanceOutput struct {
	Address string        `json:"address"`
	Total   int64         `json:"total"`
	History []awardOutput `json:"history"`
}

type awardOutput struct {
	Amount    int64     `json:"amount"`
	AwardedAt time.Time `json:"awarded_at"`
}

// pendingOutput is the --json form of a pending request.
type pendingOutput struct {
	Address     string    `json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Message     string    `json:"message,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	ReportID    string    `json:"report_id,omitempty"`
}

func ledgerBalanceCommand(env *environment) *cli.Command {
	var (
		configPath string
		jsonOutput bool
	)
	return &cli.Command{
		Name:    "balance",
		Summary: "Show an address's reward total and history",
		Usage:   "pmrelay ledger balance <email> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("balance", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: pmrelay ledger balance <email>")
			}
			store, unit, err := env.openLedger(configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			balance, err := store.Balance(env.ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				output := balanceOutput{Address: balance.Address, Total: balance.Total, History: []awardOutput{}}
				for _, award := range balance.History {
					output.History = append(output.History, awardOutput{Amount: award.Amount, AwardedAt: award.AwardedAt})
				}
				return cli.WriteJSON(env.stdout, output)
			}

			fmt.Fprintf(env.stdout, "%s: %d %s\n", balance.Address, balance.Total, unit)
			if len(balance.History) == 0 {
				return nil
			}
			writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "#\tAWARDED\tAMOUNT")
			for index, award := range balance.History {
				fmt.Fprintf(writer, "%d\t%s\t%d\n", index+1, award.AwardedAt.Format(timeLayout), award.Amount)
			}
			return writer.Flush()
		},
	}
}

func ledgerPendingCommand(env *environment) *cli.Command {
	var (
		configPath string
		jsonOutput bool
		raw        bool
	)
	return &cli.Command{
		Name:    "pending",
		Summary: "List pending relocation reports",
		Description: `List the relocation reports awaiting an approve or reject decision,
oldest first. With an address, show only that address's report; exits
1 when it has none. --raw prints the stored record in CBOR diagnostic
notation.`,
		Usage: "pmrelay ledger pending [<email>] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pending", pflag.ContinueOnError)
			configFlag(flagSet, &configPath)
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
			flagSet.BoolVar(&raw, "raw", false, "print the stored CBOR record (requires <email>)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: pmrelay ledger pending [<email>]")
			}
			if raw && len(args) == 0 {
				return fmt.Errorf("--raw requires an address")
			}
			store, _, err := env.openLedger(configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var requests []ledger.PendingRequest
			if len(args) == 1 {
				address := args[0]
				if raw {
					return env.printRawPending(store, address)
				}
				request, found, err := store.GetPending(env.ctx, address)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(env.stdout, "no pending request for %s\n", address)
					return &cli.ExitError{Code: 1}
				}
				requests = append(requests, request)
			} else {
				requests, err = store.ListPending(env.ctx)
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				output := make([]pendingOutput, 0, len(requests))
				for _, request := range requests {
					output = append(output, pendingOutput(request))
				}
				return cli.WriteJSON(env.stdout, output)
			}
			if len(requests) == 0 {
				fmt.Fprintln(env.stdout, "no pending requests")
				return nil
			}
			writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "ADDRESS\tSUBMITTED\tLOCATION\tMESSAGE")
			for _, request := range requests {
				fmt.Fprintf(writer, "%s\t%s\t%.5f, %.5f\t%s\n",
					request.Address, request.SubmittedAt.Format(timeLayout),
					request.Latitude, request.Longitude, request.Message)
			}
			return writer.Flush()
		},
	}
}

func (env *environment) printRawPending(store *ledger.Store, address string) error {
	blob, err := store.PendingBlob(env.ctx, address)
	if err != nil {
		return err
	}
	diagnostic, err := codec.Diagnose(blob)
	if err != nil {
		return fmt.Errorf("decoding pending request for %s: %w", address, err)
	}
	fmt.Fprintln(env.stdout, diagnostic)
	return nil
}

// openLedger opens the configured ledger database and returns it with
// the configured reward unit.
func (env *environment) openLedger(configPath string) (*ledger.Store, string, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, "", err
	}
	if cfg.Storage.LedgerDB == ":memory:" {
		return nil, "", fmt.Errorf("storage.ledger_db is :memory:; the service's ledger is not reachable from another process")
	}
	store, err := ledger.Open(ledger.Config{Path: cfg.Storage.LedgerDB, Logger: env.logger})
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Reward.Unit, nil
}
