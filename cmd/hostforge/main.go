// Package main is the entry point for the hostforge CLI.
//
// hostforge prepares a bare Debian or Ubuntu host to run the appstack
// application: it checks the host, installs system packages and MongoDB,
// fetches the release bundle, builds the Python environment, adds a shell
// alias and finally hands control to the application menu.
//
// Commands: install, check, history, version, completion.
//
// For detailed usage information, run:
//
//	hostforge --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostforge/hostforge/cmd/hostforge/commands"
	"github.com/hostforge/hostforge/cmd/hostforge/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, handlers.FormatError(err))
		return handlers.ExitCode(err)
	}
	return handlers.ExitOK
}
