package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/finance-reconciler/internal/cli"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/logging"
)

func main() {
	flags := cli.ParseServeFlags()

	cfg, err := cli.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if flags.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	app, err := cli.NewApp(cfg, logging.SystemAPI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	if err := cli.RunServe(app, flags); err != nil {
		app.Logger.Error("server failed", "error", err)
		_ = app.Close()
		os.Exit(1)
	}
}
