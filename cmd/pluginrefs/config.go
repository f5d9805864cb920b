package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pluginrefs/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect pluginrefs configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file, .env and
PLUGINREFS_* environment overrides are applied. Secrets are masked.

Examples:
  pluginrefs config show
  pluginrefs config show --format json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	masked := maskSecrets(*cfg)
	if configFormat == string(FormatJSON) {
		return writeJSON(os.Stdout, masked)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(masked)
}

const mask = "********"

func maskSecrets(cfg config.Config) config.Config {
	if cfg.Store.Password != "" {
		cfg.Store.Password = mask
	}
	if cfg.Lock.RedisPassword != "" {
		cfg.Lock.RedisPassword = mask
	}
	if cfg.Report.S3.SecretKey != "" {
		cfg.Report.S3.SecretKey = mask
	}
	return cfg
}
