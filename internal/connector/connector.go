// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package connector wires the connector commands to their configuration,
// job store and executor.
package connector

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jbclaudio/magento2-connector-community/internal/appstate"
	"github.com/jbclaudio/magento2-connector-community/internal/config"
	"github.com/jbclaudio/magento2-connector-community/internal/console"
	"github.com/jbclaudio/magento2-connector-community/internal/executor"
	"github.com/jbclaudio/magento2-connector-community/internal/importcmd"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/jbclaudio/magento2-connector-community/internal/jobstore"
	"github.com/jbclaudio/magento2-connector-community/internal/statuscmd"
	"github.com/urfave/cli/v3"
)

const (
	flagConfig     = "config"
	flagDBDriver   = "db-driver"
	flagDBPath     = "db-path"
	flagCatalog    = "catalog"
	flagStaleAfter = "stale-after"
	flagVerbose    = "verbose"
	flagWorkDir    = "workdir"
)

// Main runs the connector CLI and returns the process exit code. A failure
// is written to stderr in the error style.
func Main(ctx context.Context, stderr io.Writer, args ...string) int {
	if err := Run(ctx, args...); err != nil {
		if werr := console.New(stderr).Error(err.Error()); werr != nil {
			slog.Error("connector", "err", err)
		}
		return 1
	}
	return 0
}

// Run executes the connector CLI with the given command line arguments.
func Run(ctx context.Context, args ...string) error {
	return newConnectorCommand(&appstate.State{}).Run(ctx, args)
}

func newConnectorCommand(state *appstate.State) *cli.Command {
	return &cli.Command{
		Name:      "connector",
		Usage:     "run Akeneo connector commands",
		UsageText: "connector <command> [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Usage:   "path to a YAML or TOML configuration file",
				Sources: cli.EnvVars("AKENEO_CONNECTOR_CONFIG"),
			},
			&cli.StringFlag{
				Name:  flagDBDriver,
				Usage: "job store driver: sqlite or mysql",
			},
			&cli.StringFlag{
				Name:  flagDBPath,
				Usage: "path of the SQLite job store",
			},
			&cli.StringFlag{
				Name:  flagCatalog,
				Usage: "YAML or TOML file listing the import jobs",
			},
			&cli.StringFlag{
				Name:  flagStaleAfter,
				Usage: "restart a job left processing for longer than this duration (0 disables)",
			},
			&cli.StringFlag{
				Name:  flagWorkDir,
				Usage: "working directory of import job commands",
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(flagVerbose) {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			slog.Debug("connector", "arguments", cmd.Args().Slice())
			return ctx, nil
		},
		Commands: []*cli.Command{
			newImportCommand(state),
			newStatusCommand(),
		},
	}
}

func newImportCommand(state *appstate.State) *cli.Command {
	cmd := importcmd.Definition()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		area, err := appstate.ParseArea(cfg.Area)
		if err != nil {
			return err
		}
		staleAfter, err := cfg.StaleAfterDuration()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		root := cmd.Root()
		pipeline := &executor.CommandPipeline{
			Dir:    cmd.String(flagWorkDir),
			Stdout: root.Writer,
			Stderr: root.ErrWriter,
		}
		runner := executor.New(store, pipeline).WithStaleAfter(staleAfter)
		return importcmd.New(store, state, runner).
			WithArea(area).
			Execute(ctx, root.Writer, cmd.String(importcmd.CodeFlag))
	}
	return cmd
}

func newStatusCommand() *cli.Command {
	cmd := statuscmd.Definition()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return statuscmd.Execute(ctx, cmd.Root().Writer, store, cmd.String(statuscmd.CodeFlag))
	}
	return cmd
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String(flagConfig); path != "" {
		var err error
		cfg, err = config.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if v := cmd.String(flagDBDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := cmd.String(flagDBPath); v != "" {
		cfg.Database.Path = v
	}
	if v := cmd.String(flagCatalog); v != "" {
		cfg.Catalog = v
	}
	if v := cmd.String(flagStaleAfter); v != "" {
		cfg.StaleAfter = v
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	return cfg, nil
}

// openStore opens the job store and loads the catalog into it. Without a
// catalog file the built-in jobs are only loaded into an empty store, so jobs
// managed directly in the database are left alone.
func openStore(ctx context.Context, cfg *config.Config) (*jobstore.Store, error) {
	store, err := jobstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store %s: %w", cfg.Database, err)
	}
	jobs, err := catalogJobs(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if jobs != nil {
		if err := store.Seed(ctx, jobs); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load import jobs: %w", err)
		}
	}
	return store, nil
}

func catalogJobs(ctx context.Context, cfg *config.Config, store *jobstore.Store) ([]importjob.Descriptor, error) {
	if cfg.Catalog != "" {
		return importjob.ReadCatalog(cfg.Catalog)
	}
	existing, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}
	return importjob.Defaults(), nil
}
