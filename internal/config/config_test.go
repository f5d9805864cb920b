package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.BatchSize != 500 {
		t.Errorf("Store.BatchSize = %d, want 500", cfg.Store.BatchSize)
	}
	if cfg.Extraction.ReferenceBackend != "treesitter" {
		t.Errorf("ReferenceBackend = %q, want treesitter", cfg.Extraction.ReferenceBackend)
	}
	if len(cfg.Extraction.APIEntryFiles) != 2 || cfg.Extraction.APIEntryFiles[0] != "public/index.ts" {
		t.Errorf("APIEntryFiles = %v", cfg.Extraction.APIEntryFiles)
	}
	if len(cfg.Plugins.RestrictedDirs) != 1 || cfg.Plugins.RestrictedDirs[0] != "x-pack" {
		t.Errorf("RestrictedDirs = %v", cfg.Plugins.RestrictedDirs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no points", func(c *Config) { c.Snapshots.Points = nil }, "snapshots.points"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver"},
		{"es without url", func(c *Config) { c.Store.Driver = "elasticsearch"; c.Store.URL = "" }, "store.url"},
		{"zero batch", func(c *Config) { c.Store.BatchSize = 0 }, "store.batchSize"},
		{"bad backend", func(c *Config) { c.Extraction.ReferenceBackend = "lsp" }, "extraction.referenceBackend"},
		{"s3 without bucket", func(c *Config) { c.Report.S3.Endpoint = "localhost:9000" }, "report.s3.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pluginrefs.yaml")
	content := `
repo:
  name: kibana
  localDir: /tmp/kibana-checkout
snapshots:
  points: ["2020-01-01", "head"]
store:
  driver: elasticsearch
  url: http://es:9200
  batchSize: 250
extraction:
  referenceBackend: scip
  scipStrict: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCAL_REPO_DIR", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Repo.LocalDir != "/tmp/kibana-checkout" {
		t.Errorf("LocalDir = %q", cfg.Repo.LocalDir)
	}
	if len(cfg.Snapshots.Points) != 2 || cfg.Snapshots.Points[1] != "head" {
		t.Errorf("Points = %v", cfg.Snapshots.Points)
	}
	if cfg.Store.Driver != "elasticsearch" || cfg.Store.BatchSize != 250 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Extraction.ReferenceBackend != "scip" || !cfg.Extraction.SCIPStrict {
		t.Errorf("Extraction = %+v", cfg.Extraction)
	}
	// Unset keys keep their defaults.
	if cfg.Extraction.SCIPIndex != "index.scip" {
		t.Errorf("SCIPIndex = %q, want default", cfg.Extraction.SCIPIndex)
	}
}

func TestLoadConfig_LocalRepoDirOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pluginrefs.json")
	if err := os.WriteFile(path, []byte(`{"repo": {"localDir": "/from/file"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCAL_REPO_DIR", "/from/env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Repo.LocalDir != "/from/env" {
		t.Errorf("LocalDir = %q, want /from/env", cfg.Repo.LocalDir)
	}
	if cfg.LockDir() != "/from" {
		t.Errorf("LockDir() = %q, want /from", cfg.LockDir())
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}
