// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/clock"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &environment{
		ctx:    ctx,
		stdout: os.Stdout,
		clock:  clock.Real(),
		logger: cli.NewCommandLogger(),
	}
	return root(env).Execute(os.Args[1:])
}
