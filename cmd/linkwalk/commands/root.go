// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/config"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/spf13/cobra"
)

// errRunsFailed makes the process exit with status 1 after the results
// were printed
var errRunsFailed = errors.New("one or more runs did not resolve")

var (
	configPath string
	logLevel   string
	logFormat  string
	dbPath     string
	noHistory  bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "linkwalk",
	Short:         "linkwalk follows link-protector chains to the files behind them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			c.Log.Format = logFormat
		}
		if dbPath != "" {
			c.Store.Path = dbPath
		}
		if noHistory {
			c.Store.Disabled = true
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger, err = newLogger(c.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ~/.linkwalk/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&dbPath, "db", "", "run history database (default ~/.linkwalk/linkwalk.db)")
	flags.BoolVar(&noHistory, "no-history", false, "do not open the run history database")
}

// ExecuteContext runs the command line and returns the process exit code
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunsFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newLogger(lc config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch lc.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", lc.Format)
}

// openStore opens the history database, or returns nil when history is
// disabled
func openStore() (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, nil
	}
	if cfg.Store.Path != "" {
		return store.Open(cfg.Store.Path)
	}
	return store.NewStore()
}

// requireStore opens the history database for the history commands
func requireStore() (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, fmt.Errorf("run history is disabled (store.disabled or --no-history)")
	}
	return openStore()
}

// newApp builds the application service. The returned cleanup closes the
// browser and the database.
func newApp(st *store.Store, emitter app.EventEmitter) (*app.App, func(), error) {
	a, err := app.NewApp(cfg, st, emitter, app.WithLogger(logger))
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Debug("failed to close renderer", "error", err)
		}
		if st != nil {
			st.Close()
		}
	}
	return a, cleanup, nil
}
