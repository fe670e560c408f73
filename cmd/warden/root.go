// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/logging"
	"github.com/holomush/warden/internal/xdg"
)

const defaultEnvFile = ".env"

// app is the state shared by every subcommand of one invocation.
type app struct {
	deps       *Deps
	configFile string
	envFile    string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the warden CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden - credential and token lifecycle engine",
		Long: `Warden manages account credentials: registration with email
activation, password reset, and login sessions built on short-lived
access tokens and rotating refresh tokens.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/warden/config.yaml if present)")
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file loaded before reading the environment")
	flags.String("database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	flags.String("redis-url", "", "Redis URL for the notification queue (overrides REDIS_URL)")
	flags.String("log-format", "", "log format (json or text)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newAccountCmd(a))
	cmd.AddCommand(newPurgeCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

// load reads the dotenv file and configuration, then installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := loadEnvFile(a.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	path := a.configFile
	if path == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return err
		}
		path = found
	}

	cfg, err := config.Load(config.LoadOptions{
		Path:  path,
		Flags: cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.Setup(logging.Options{
		Service: "warden",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

// loadEnvFile loads path into the environment without overriding set
// variables. A missing file is only an error when it was asked for.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("ENV_FILE_INVALID").With("path", path).Wrap(err)
	}
	return nil
}
