// Package main is the entry point for the dhikr server and CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"dhikr/bootstrap"
	"dhikr/cmd"
)

// run initializes and starts the server, blocking until shutdown.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown(ctx)
	app.Shutdown()

	return nil
}

func main() {
	// Check if running as CLI command
	if len(os.Args) > 1 && os.Args[1] == "rules" {
		// Strip "rules" from os.Args since the command already knows it's the rules command
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		if err := cmd.NewRulesCmd().Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
