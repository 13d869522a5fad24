package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/finance-reconciler/internal/cli"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/logging"
)

func main() {
	flags, err := cli.ParseReconcileFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if flags.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	app, err := cli.NewApp(cfg, logging.SystemReconcile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	_, runErr := cli.RunReconcile(ctx, app, flags, os.Stdout)
	stop()

	if err := app.Close(); err != nil {
		app.Logger.Warn("failed to close resources", "error", err)
	}
	if runErr != nil {
		app.Logger.Error("reconcile failed", "error", runErr)
		os.Exit(1)
	}
}
