// Package cmd implements the reflow CLI commands.
package cmd

import (
	"context"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/urfave/cli/v3"

	"github.com/go-drift/reflow/pkg/config"
	"github.com/go-drift/reflow/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

const (
	configKey    = "config"
	verbosityKey = "verbosity"
)

// Execute runs the CLI with the given arguments.
func Execute(ctx context.Context, args []string) error {
	root := &cli.Command{
		Name:    "reflow",
		Usage:   "Drive the reflow invalidation engine",
		Version: Version + " (built " + BuildTime + ")",
		Commands: []*cli.Command{
			demoCommand(),
			benchCommand(),
		},
	}
	return root.Run(ctx, args)
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  configKey,
			Usage: "Path to a reflow.yaml (defaults to ./reflow.yaml if present)",
		},
		&cli.UintFlag{
			Name:  verbosityKey,
			Usage: "Log verbosity (overrides log.verbosity)",
		},
	}
}

// loadConfig reads the file named by --config, or reflow.yaml in the
// working directory if there is one.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := cmd.String(configKey); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOptional(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet(verbosityKey) {
		cfg.Log.Verbosity = int(cmd.Uint(verbosityKey))
	}
	return cfg, nil
}

// newLogger returns a stderr logger at the configured verbosity and routes
// engine errors through it.
func newLogger(cfg config.Config) logr.Logger {
	stdr.SetVerbosity(cfg.Log.Verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("reflow")
	errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: cfg.Log.Verbosity > 0})
	return logger
}
