// Package main is the entry point for the sqlbundle CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbforge/sqlbundle/internal/cli"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, canceling...\n", sig)
		cancel()

		sig = <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived second signal %v, forcing exit\n", sig)
		os.Exit(1)
	}()

	cli.SetVersionInfo(version, commit, date)

	if err := cli.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Operation canceled")
			os.Exit(130)
		}
		// Print the error since SilenceErrors is enabled in cobra
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
