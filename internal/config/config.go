package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pluginrefs/internal/paths"
)

// Config is the complete pluginrefs configuration.
type Config struct {
	Repo        RepoConfig        `json:"repo" mapstructure:"repo" yaml:"repo"`
	Snapshots   SnapshotsConfig   `json:"snapshots" mapstructure:"snapshots" yaml:"snapshots"`
	Plugins     PluginsConfig     `json:"plugins" mapstructure:"plugins" yaml:"plugins"`
	Extraction  ExtractionConfig  `json:"extraction" mapstructure:"extraction" yaml:"extraction"`
	Store       StoreConfig       `json:"store" mapstructure:"store" yaml:"store"`
	Lock        LockConfig        `json:"lock" mapstructure:"lock" yaml:"lock"`
	Report      ReportConfig      `json:"report" mapstructure:"report" yaml:"report"`
	Sweep       SweepConfig       `json:"sweep" mapstructure:"sweep" yaml:"sweep"`
	CodeMetrics CodeMetricsConfig `json:"codeMetrics" mapstructure:"codeMetrics" yaml:"codeMetrics"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging" yaml:"logging"`
}

// RepoConfig identifies the analyzed repository and its local checkout.
type RepoConfig struct {
	URL      string `json:"url" mapstructure:"url" yaml:"url"`
	Name     string `json:"name" mapstructure:"name" yaml:"name"`
	Branch   string `json:"branch" mapstructure:"branch" yaml:"branch"`
	LocalDir string `json:"localDir" mapstructure:"localDir" yaml:"localDir"`
	// GitTimeoutSeconds bounds each git invocation; clones get ten times as long.
	GitTimeoutSeconds int `json:"gitTimeoutSeconds" mapstructure:"gitTimeoutSeconds" yaml:"gitTimeoutSeconds"`
}

// SnapshotsConfig lists the checkout points of a sweep, in order.
// "" or "head" denotes the current head of the branch.
type SnapshotsConfig struct {
	Points []string `json:"points" mapstructure:"points" yaml:"points"`
}

// PluginsConfig controls plugin discovery.
type PluginsConfig struct {
	Dirs           []string `json:"dirs" mapstructure:"dirs" yaml:"dirs"`
	Manifests      []string `json:"manifests" mapstructure:"manifests" yaml:"manifests"`
	RestrictedDirs []string `json:"restrictedDirs" mapstructure:"restrictedDirs" yaml:"restrictedDirs"`
	// Declarations is a repo-relative TOML file of explicit plugin records.
	Declarations string `json:"declarations" mapstructure:"declarations" yaml:"declarations"`
}

// ExtractionConfig controls project loading and symbol extraction.
type ExtractionConfig struct {
	APIEntryFiles      []string `json:"apiEntryFiles" mapstructure:"apiEntryFiles" yaml:"apiEntryFiles"`
	ContractEntryFiles []string `json:"contractEntryFiles" mapstructure:"contractEntryFiles" yaml:"contractEntryFiles"`
	Extensions         []string `json:"extensions" mapstructure:"extensions" yaml:"extensions"`
	Ignore             []string `json:"ignore" mapstructure:"ignore" yaml:"ignore"`
	TSConfig           string   `json:"tsconfig" mapstructure:"tsconfig" yaml:"tsconfig"`
	Workers            int      `json:"workers" mapstructure:"workers" yaml:"workers"`
	MaxFileSizeBytes   int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
	// ReferenceBackend is "treesitter" or "scip".
	ReferenceBackend string `json:"referenceBackend" mapstructure:"referenceBackend" yaml:"referenceBackend"`
	SCIPIndex        string `json:"scipIndex" mapstructure:"scipIndex" yaml:"scipIndex"`
	// SCIPCommand regenerates the index after each checkout when set.
	SCIPCommand []string `json:"scipCommand" mapstructure:"scipCommand" yaml:"scipCommand"`
	// SCIPStrict fails the snapshot instead of falling back to tree-sitter
	// when the index is missing or unusable.
	SCIPStrict bool `json:"scipStrict" mapstructure:"scipStrict" yaml:"scipStrict"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	// Driver is "sqlite", "postgres" or "elasticsearch".
	Driver      string `json:"driver" mapstructure:"driver" yaml:"driver"`
	DSN         string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`
	URL         string `json:"url" mapstructure:"url" yaml:"url"`
	Username    string `json:"username" mapstructure:"username" yaml:"username"`
	Password    string `json:"password" mapstructure:"password" yaml:"password"`
	BatchSize   int    `json:"batchSize" mapstructure:"batchSize" yaml:"batchSize"`
	IndexPrefix string `json:"indexPrefix" mapstructure:"indexPrefix" yaml:"indexPrefix"`
	Gzip        bool   `json:"gzip" mapstructure:"gzip" yaml:"gzip"`
	TimeoutSecs int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// LockConfig configures the checkout lock. An empty RedisAddr selects the
// local lock file.
type LockConfig struct {
	RedisAddr     string `json:"redisAddr" mapstructure:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"redisPassword" mapstructure:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDb" mapstructure:"redisDb" yaml:"redisDb"`
	TTLSeconds    int    `json:"ttlSeconds" mapstructure:"ttlSeconds" yaml:"ttlSeconds"`
}

// ReportConfig controls where sweep reports are archived.
type ReportConfig struct {
	Dir string   `json:"dir" mapstructure:"dir" yaml:"dir"`
	S3  S3Config `json:"s3" mapstructure:"s3" yaml:"s3"`
}

// S3Config describes an S3-compatible bucket. Disabled when Endpoint is empty.
type S3Config struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `json:"accessKey" mapstructure:"accessKey" yaml:"accessKey"`
	SecretKey string `json:"secretKey" mapstructure:"secretKey" yaml:"secretKey"`
	UseSSL    bool   `json:"useSSL" mapstructure:"useSSL" yaml:"useSSL"`
	Prefix    string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`
	// Gzip uploads reports as .json.gz.
	Gzip bool `json:"gzip" mapstructure:"gzip" yaml:"gzip"`
}

// SweepConfig controls orchestrator failure handling.
type SweepConfig struct {
	FailFast bool `json:"failFast" mapstructure:"failFast" yaml:"failFast"`
}

// CodeMetricsConfig controls the whole-file metrics sweep.
type CodeMetricsConfig struct {
	Extensions []string `json:"extensions" mapstructure:"extensions" yaml:"extensions"`
	Exclude    []string `json:"exclude" mapstructure:"exclude" yaml:"exclude"`
	// RulesFile is a YAML or TOML file of capability rules replacing the defaults.
	RulesFile string `json:"rulesFile" mapstructure:"rulesFile" yaml:"rulesFile"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" yaml:"level"`
	File       string `json:"file" mapstructure:"file" yaml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" yaml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			URL:               "https://github.com/elastic/kibana.git",
			Name:              "kibana",
			Branch:            "main",
			LocalDir:          "~/.pluginrefs/checkout",
			GitTimeoutSeconds: 120,
		},
		Snapshots: SnapshotsConfig{
			Points: []string{"head"},
		},
		Plugins: PluginsConfig{
			Dirs:           []string{"src/plugins", "x-pack/plugins", "examples", "x-pack/examples", "packages", "src/platform/plugins", "x-pack/platform/plugins", "x-pack/solutions"},
			Manifests:      []string{"kibana.jsonc", "kibana.json"},
			RestrictedDirs: []string{"x-pack"},
			Declarations:   "plugins.toml",
		},
		Extraction: ExtractionConfig{
			APIEntryFiles:      []string{"public/index.ts", "server/index.ts"},
			ContractEntryFiles: []string{"public/plugin.ts", "server/plugin.ts"},
			Extensions:         []string{".ts", ".tsx"},
			Ignore:             []string{"node_modules", "target", "build", "bazel-out", "__fixtures__"},
			TSConfig:           "tsconfig.base.json",
			Workers:            0,
			MaxFileSizeBytes:   1 << 20,
			ReferenceBackend:   "treesitter",
			SCIPIndex:          "index.scip",
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			DSN:         "~/.pluginrefs/pluginrefs.db",
			URL:         "http://localhost:9200",
			BatchSize:   500,
			IndexPrefix: "",
			Gzip:        true,
			TimeoutSecs: 60,
		},
		Lock: LockConfig{
			TTLSeconds: 300,
		},
		Report: ReportConfig{
			Dir: "~/.pluginrefs/reports",
		},
		CodeMetrics: CodeMetricsConfig{
			Extensions: []string{".js", ".ts", ".jsx", ".tsx", ".html", ".css", ".scss"},
			Exclude:    []string{"node_modules", "optimize/bundles", "x-pack/build", "target/"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// setDefaults registers every default with viper so that environment
// overrides work for keys absent from the config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("repo.url", d.Repo.URL)
	v.SetDefault("repo.name", d.Repo.Name)
	v.SetDefault("repo.branch", d.Repo.Branch)
	v.SetDefault("repo.localDir", d.Repo.LocalDir)
	v.SetDefault("repo.gitTimeoutSeconds", d.Repo.GitTimeoutSeconds)
	v.SetDefault("snapshots.points", d.Snapshots.Points)
	v.SetDefault("plugins.dirs", d.Plugins.Dirs)
	v.SetDefault("plugins.manifests", d.Plugins.Manifests)
	v.SetDefault("plugins.restrictedDirs", d.Plugins.RestrictedDirs)
	v.SetDefault("plugins.declarations", d.Plugins.Declarations)
	v.SetDefault("extraction.apiEntryFiles", d.Extraction.APIEntryFiles)
	v.SetDefault("extraction.contractEntryFiles", d.Extraction.ContractEntryFiles)
	v.SetDefault("extraction.extensions", d.Extraction.Extensions)
	v.SetDefault("extraction.ignore", d.Extraction.Ignore)
	v.SetDefault("extraction.tsconfig", d.Extraction.TSConfig)
	v.SetDefault("extraction.workers", d.Extraction.Workers)
	v.SetDefault("extraction.maxFileSizeBytes", d.Extraction.MaxFileSizeBytes)
	v.SetDefault("extraction.referenceBackend", d.Extraction.ReferenceBackend)
	v.SetDefault("extraction.scipIndex", d.Extraction.SCIPIndex)
	v.SetDefault("extraction.scipCommand", d.Extraction.SCIPCommand)
	v.SetDefault("extraction.scipStrict", d.Extraction.SCIPStrict)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.url", d.Store.URL)
	v.SetDefault("store.username", d.Store.Username)
	v.SetDefault("store.password", d.Store.Password)
	v.SetDefault("store.batchSize", d.Store.BatchSize)
	v.SetDefault("store.indexPrefix", d.Store.IndexPrefix)
	v.SetDefault("store.gzip", d.Store.Gzip)
	v.SetDefault("store.timeoutSeconds", d.Store.TimeoutSecs)
	v.SetDefault("lock.redisAddr", d.Lock.RedisAddr)
	v.SetDefault("lock.redisPassword", d.Lock.RedisPassword)
	v.SetDefault("lock.redisDb", d.Lock.RedisDB)
	v.SetDefault("lock.ttlSeconds", d.Lock.TTLSeconds)
	v.SetDefault("report.dir", d.Report.Dir)
	v.SetDefault("report.s3.endpoint", d.Report.S3.Endpoint)
	v.SetDefault("report.s3.bucket", d.Report.S3.Bucket)
	v.SetDefault("report.s3.accessKey", d.Report.S3.AccessKey)
	v.SetDefault("report.s3.secretKey", d.Report.S3.SecretKey)
	v.SetDefault("report.s3.useSSL", d.Report.S3.UseSSL)
	v.SetDefault("report.s3.prefix", d.Report.S3.Prefix)
	v.SetDefault("report.s3.gzip", d.Report.S3.Gzip)
	v.SetDefault("sweep.failFast", d.Sweep.FailFast)
	v.SetDefault("codeMetrics.extensions", d.CodeMetrics.Extensions)
	v.SetDefault("codeMetrics.exclude", d.CodeMetrics.Exclude)
	v.SetDefault("codeMetrics.rulesFile", d.CodeMetrics.RulesFile)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig reads configuration in increasing precedence: defaults, the
// config file, a .env file in the working directory, PLUGINREFS_*
// environment variables, then LOCAL_REPO_DIR for the checkout directory.
// An empty configPath searches the working directory for pluginrefs.{yaml,json,toml}.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Field: ".env", Message: err.Error()}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PLUGINREFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pluginrefs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}

	if dir := os.Getenv("LOCAL_REPO_DIR"); dir != "" {
		cfg.Repo.LocalDir = dir
	}
	cfg.expand()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expand() {
	c.Repo.LocalDir = paths.ExpandHome(c.Repo.LocalDir)
	c.Report.Dir = paths.ExpandHome(c.Report.Dir)
	c.Logging.File = paths.ExpandHome(c.Logging.File)
	if c.Store.Driver == "sqlite" {
		c.Store.DSN = paths.ExpandHome(c.Store.DSN)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Repo.LocalDir == "" {
		return &ConfigError{Field: "repo.localDir", Message: "must not be empty"}
	}
	if len(c.Snapshots.Points) == 0 {
		return &ConfigError{Field: "snapshots.points", Message: "at least one checkout point is required"}
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return &ConfigError{Field: "store.dsn", Message: "required for driver " + c.Store.Driver}
		}
	case "elasticsearch":
		if c.Store.URL == "" {
			return &ConfigError{Field: "store.url", Message: "required for driver elasticsearch"}
		}
	default:
		return &ConfigError{Field: "store.driver", Message: fmt.Sprintf("unknown driver %q", c.Store.Driver)}
	}
	if c.Store.BatchSize <= 0 {
		return &ConfigError{Field: "store.batchSize", Message: "must be positive"}
	}
	switch c.Extraction.ReferenceBackend {
	case "treesitter", "scip":
	default:
		return &ConfigError{Field: "extraction.referenceBackend", Message: fmt.Sprintf("unknown backend %q", c.Extraction.ReferenceBackend)}
	}
	if c.Report.S3.Endpoint != "" && c.Report.S3.Bucket == "" {
		return &ConfigError{Field: "report.s3.bucket", Message: "required when report.s3.endpoint is set"}
	}
	return nil
}

// LockDir returns the directory holding the checkout lock file, the
// parent of the checkout so that re-cloning never deletes it.
func (c *Config) LockDir() string {
	return filepath.Dir(filepath.Clean(c.Repo.LocalDir))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
