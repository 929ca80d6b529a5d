// Package main is the entry point for stamply.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stamply/stamply/bootstrap"
	"github.com/stamply/stamply/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "stamply.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	sweep := flag.Bool("sweep", false, "Run one reset sweep and exit")
	flag.Parse()

	// Version command
	if *showVersion {
		fmt.Printf("stamply %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Validate only mode
	if *validate {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration valid\n")
		fmt.Printf("  Billing mode: %s\n", cfg.Billing.Mode)
		fmt.Printf("  Plans: %d\n", len(cfg.Plans))
		fmt.Printf("  Database: %s\n", cfg.Database.DSN)
		os.Exit(0)
	}

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: *configPath,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	// One-shot sweep mode
	if *sweep {
		n, err := app.Sweep(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sweep error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Reset %d notification counters\n", n)
		if err := app.Shutdown(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Run (blocks until shutdown)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
