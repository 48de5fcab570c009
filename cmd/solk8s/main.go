// Package main is the entry point for the solk8s CLI.
//
// solk8s deploys a Solana validator test cluster into a Kubernetes
// namespace: one bootstrap validator plus N regular validators that share a
// genesis built locally with the Solana CLI tools.
//
// Commands: deploy, render, verify, version.
//
// For detailed usage information, run:
//
//	solk8s --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/solk8s/cmd/solk8s/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
