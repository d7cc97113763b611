/*
Copyright © 2025 the EdgeGate authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

const name = "egc"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "EdgeGate configuration compiler",
		Version: version,
		Description: fmt.Sprintf(`egc - EdgeGate configuration compiler

Version: %s
Commit:  %s
Built:   %s

Compiles raw gateway configuration resources into the validated
intermediate representation the data-plane renderer consumes.`, version, commit, date),
		Commands: []*cli.Command{
			compileCmd(),
			versionCmd(),
		},
	}
}

// Execute runs the root command. It is called by main.main() and handles
// SIGINT/SIGTERM by canceling the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
