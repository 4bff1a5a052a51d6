// Package main provides the entry point for the credstore server and its operator commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func getCommands(version string) []*cli.Command {
	return append(getSystemCommands(version), getKeyCommands()...)
}

func main() {
	cmd := &cli.Command{
		Name:     "credstore",
		Usage:    "Versioned credential store with pluggable encryption providers",
		Version:  version,
		Commands: getCommands(version),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
