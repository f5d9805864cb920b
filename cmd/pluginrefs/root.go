package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pluginrefs/internal/config"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/slogutil"
	"pluginrefs/internal/version"
)

var (
	configPath string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "pluginrefs",
	Short: "pluginrefs - cross-plugin API reference inventory",
	Long: `pluginrefs finds every usage of each plugin's public and server API in
another plugin, attributes it to the owning team, and indexes the results
for a series of historical snapshots of the repository.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("pluginrefs version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./pluginrefs.{yaml,json,toml})")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}

// env is the loaded configuration and logger of one command.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() {
	_ = e.closer.Close()
}

// setup loads the configuration and builds the logger.
func setup() (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "Failed to load configuration", err)
	}
	logger, closer, err := slogutil.Setup(os.Stderr, slogutil.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		Verbosity:  verbosity,
		Quiet:      quiet,
	})
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "Failed to open log file", err)
	}
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}
