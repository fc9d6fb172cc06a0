// Package config loads reposample configuration from defaults, an optional
// YAML file, REPOSAMPLE_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gomantics/reposample/libs/lang"
)

// Sentinel validation errors.
var (
	ErrInvalidEnv         = errors.New("env must be dev or prod")
	ErrInvalidSource      = errors.New("source must be api or clone")
	ErrInvalidQPS         = errors.New("qps must not be negative")
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	ErrInvalidBatchSize   = errors.New("batch size must be positive")
	ErrInvalidMaxFiles    = errors.New("max files must not be negative")
	ErrInvalidSize        = errors.New("invalid size bounds")
	ErrInvalidLanguage    = errors.New("invalid language")
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidProject     = errors.New("invalid project")
)

// Default configuration values.
const (
	DefaultEnv         = "prod"
	DefaultSource      = SourceAPI
	DefaultRevision    = "master"
	DefaultDatabase    = "reposample.json"
	DefaultMinSize     = "500"
	DefaultMaxSize     = "5000"
	DefaultMaxFiles    = 10
	DefaultQPS         = 20.0
	DefaultConcurrency = 8
	DefaultBatchSize   = 100
	DefaultPort        = 8080

	maxPort = 65535
)

// Content sources.
const (
	SourceAPI   = "api"
	SourceClone = "clone"
)

// Config holds all configuration for reposample.
type Config struct {
	Env      string          `mapstructure:"env"`
	GitHub   GitHubConfig    `mapstructure:"github"`
	Download DownloadConfig  `mapstructure:"download"`
	Server   ServerConfig    `mapstructure:"server"`
	Projects []ProjectConfig `mapstructure:"projects"`
}

// GitHubConfig holds the credentials and endpoint of the hosting service.
type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// DownloadConfig controls a single download run.
type DownloadConfig struct {
	Repository  string   `mapstructure:"repository"`
	Directory   string   `mapstructure:"directory"`
	Revision    string   `mapstructure:"revision"`
	Source      string   `mapstructure:"source"`
	Database    string   `mapstructure:"database"`
	Include     []string `mapstructure:"include"`
	Exclude     []string `mapstructure:"exclude"`
	MinSize     string   `mapstructure:"min_size"`
	MaxSize     string   `mapstructure:"max_size"`
	Languages   []string `mapstructure:"languages"`
	MaxFiles    int      `mapstructure:"max_files"`
	QPS         float64  `mapstructure:"qps"`
	Concurrency int      `mapstructure:"concurrency"`
	BatchSize   int      `mapstructure:"batch_size"`
	DryRun      bool     `mapstructure:"dry_run"`
	LogSkipped  bool     `mapstructure:"log_skipped"`
	Seed        uint64   `mapstructure:"seed"`
}

// ServerConfig holds the read-only API server configuration.
type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// ProjectConfig is one repository sampled with per-language quotas.
type ProjectConfig struct {
	Repository string         `mapstructure:"repository"`
	Revision   string         `mapstructure:"revision"`
	Files      map[string]int `mapstructure:"files"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"env":          "env",
	"revision":     "download.revision",
	"source":       "download.source",
	"database":     "download.database",
	"include":      "download.include",
	"exclude":      "download.exclude",
	"min-size":     "download.min_size",
	"max-size":     "download.max_size",
	"language":     "download.languages",
	"max-files":    "download.max_files",
	"qps":          "download.qps",
	"concurrency":  "download.concurrency",
	"batch-size":   "download.batch_size",
	"dry-run":      "download.dry_run",
	"log-skipped":  "download.log_skipped",
	"seed":         "download.seed",
	"port":         "server.port",
	"github-token": "github.token",
	"api-url":      "github.api_url",
}

// Load reads the configuration. configPath may be empty to search the default
// locations; flags may be nil. Only flags that were changed on the command
// line override file and environment values.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reposample")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reposample")
	}

	v.SetEnvPrefix("REPOSAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", "REPOSAMPLE_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", DefaultEnv)

	v.SetDefault("github.api_url", "https://api.github.com")

	v.SetDefault("download.revision", DefaultRevision)
	v.SetDefault("download.source", DefaultSource)
	v.SetDefault("download.database", DefaultDatabase)
	v.SetDefault("download.include", []string{})
	v.SetDefault("download.exclude", []string{})
	v.SetDefault("download.min_size", DefaultMinSize)
	v.SetDefault("download.max_size", DefaultMaxSize)
	v.SetDefault("download.languages", []string{string(lang.All)})
	v.SetDefault("download.max_files", DefaultMaxFiles)
	v.SetDefault("download.qps", DefaultQPS)
	v.SetDefault("download.concurrency", DefaultConcurrency)
	v.SetDefault("download.batch_size", DefaultBatchSize)
	v.SetDefault("download.dry_run", false)
	v.SetDefault("download.log_skipped", false)
	v.SetDefault("download.seed", 0)

	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// IsDev reports whether development logging and server settings apply.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("%w: %q", ErrInvalidEnv, c.Env)
	}

	if err := c.Download.validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	for i, p := range c.Projects {
		if err := p.validate(); err != nil {
			return fmt.Errorf("project %d: %w", i, err)
		}
	}

	return nil
}

func (d *DownloadConfig) validate() error {
	if d.Source != SourceAPI && d.Source != SourceClone {
		return fmt.Errorf("%w: %q", ErrInvalidSource, d.Source)
	}
	if d.QPS < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidQPS, d.QPS)
	}
	if d.Concurrency <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, d.Concurrency)
	}
	if d.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, d.BatchSize)
	}
	if d.MaxFiles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFiles, d.MaxFiles)
	}
	if _, _, err := d.SizeBounds(); err != nil {
		return err
	}
	if _, err := d.LanguageSet(); err != nil {
		return err
	}
	return nil
}

// SizeBounds parses the size limits. Sizes accept humanized byte strings
// such as "5 KB"; an empty or zero maximum means unbounded.
func (d *DownloadConfig) SizeBounds() (int64, int64, error) {
	minSize, err := parseSize(d.MinSize)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: min size: %w", ErrInvalidSize, err)
	}
	maxSize, err := parseSize(d.MaxSize)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: max size: %w", ErrInvalidSize, err)
	}
	if maxSize > 0 && minSize > maxSize {
		return 0, 0, fmt.Errorf("%w: min size %d exceeds max size %d", ErrInvalidSize, minSize, maxSize)
	}
	return minSize, maxSize, nil
}

func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// LanguageSet parses the configured language restriction.
func (d *DownloadConfig) LanguageSet() (lang.Set, error) {
	l, err := lang.ParseList(d.Languages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLanguage, err)
	}
	return lang.Set(l), nil
}

func (p *ProjectConfig) validate() error {
	if strings.TrimSpace(p.Repository) == "" {
		return fmt.Errorf("%w: missing repository", ErrInvalidProject)
	}
	if len(p.Files) == 0 {
		return fmt.Errorf("%w: %s: no file quotas", ErrInvalidProject, p.Repository)
	}
	if _, err := p.Quotas(); err != nil {
		return err
	}
	return nil
}

// Quotas parses the per-language file counts.
func (p *ProjectConfig) Quotas() (map[lang.Language]int, error) {
	out := make(map[lang.Language]int, len(p.Files))
	for name, count := range p.Files {
		l, err := lang.Parse(name)
		if err != nil || l == lang.All {
			return nil, fmt.Errorf("%w: %s: language %q", ErrInvalidProject, p.Repository, name)
		}
		if count <= 0 {
			return nil, fmt.Errorf("%w: %s: count for %s must be positive", ErrInvalidProject, p.Repository, name)
		}
		out[l] = count
	}
	return out, nil
}
