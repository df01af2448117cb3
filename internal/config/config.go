package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mashehu/setup-nextflow/internal/logger"
)

// Config holds the tunables shared by the setup pipeline.
type Config struct {
	// Owner is the GitHub owner of the releases repository.
	Owner string `yaml:"owner"`
	// Repo is the GitHub repository publishing the releases.
	Repo string `yaml:"repo"`
	// APIURL is the GitHub REST API base URL.
	APIURL string `yaml:"api_url"`
	// ToolCache is the root of the persistent tool cache.
	ToolCache string `yaml:"tool_cache"`
	// TempDir is where per-run install directories are created.
	TempDir string `yaml:"temp_dir"`
	// Timeout bounds each GitHub API call.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level printed outside of GitHub Actions.
	LogLevel string `yaml:"log_level"`
	// Download tunes the asset download retry loop.
	Download Download `yaml:"download"`
	// WarmUp tunes the post-install `nextflow help` run.
	WarmUp WarmUp `yaml:"warm_up"`
}

// Download holds the exponential backoff settings for asset downloads.
type Download struct {
	// MaxTries is the total number of attempts, including the first one.
	MaxTries uint `yaml:"max_tries"`
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration `yaml:"initial_interval"`
	// MaxInterval caps the wait between two attempts.
	MaxInterval time.Duration `yaml:"max_interval"`
	// MaxElapsed caps the total time spent retrying.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// WarmUp controls the first run of the installed binary.
type WarmUp struct {
	// Disabled skips the warm-up run entirely.
	Disabled bool `yaml:"disabled"`
	// Timeout bounds the warm-up run.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultOwner is the GitHub owner publishing Nextflow.
	DefaultOwner = "nextflow-io"

	// DefaultRepo is the GitHub repository publishing Nextflow.
	DefaultRepo = "nextflow"

	// DefaultAPIURL is the public GitHub REST API.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultTimeout is the default duration for a GitHub API call.
	DefaultTimeout = 30 * time.Second

	// DefaultLogLevel is the default minimum log level.
	DefaultLogLevel = "info"

	// DefaultMaxTries is the default number of download attempts.
	DefaultMaxTries = 5

	// DefaultInitialInterval is the default first retry delay.
	DefaultInitialInterval = time.Second

	// DefaultMaxInterval is the default cap between retries.
	DefaultMaxInterval = 30 * time.Second

	// DefaultMaxElapsed is the default overall retry budget.
	DefaultMaxElapsed = 5 * time.Minute

	// DefaultWarmUpTimeout bounds `nextflow help`, which downloads the runtime on first use.
	DefaultWarmUpTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables provided by the Actions runner.
const (
	EnvToolCache = "RUNNER_TOOL_CACHE"
	EnvTemp      = "RUNNER_TEMP"
	EnvAPIURL    = "GITHUB_API_URL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for a log level zap does not know.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults alone always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnvironment is Load with runner variables applied before defaults are filled.
func LoadWithEnvironment(path string, lookup func(string) (string, bool)) (*Config, error) {
	return load(path, func(cfg *Config) {
		ApplyEnvironment(cfg, lookup)
	})
}

func load(path string, beforeValidate func(*Config)) (*Config, error) {
	var cfg Config

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if beforeValidate != nil {
		beforeValidate(&cfg)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnvironment fills locations left empty from runner environment variables.
func ApplyEnvironment(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fill := func(field *string, key string) {
		if *field != "" {
			return
		}

		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
		}
	}

	fill(&cfg.ToolCache, EnvToolCache)
	fill(&cfg.TempDir, EnvTemp)

	if value, ok := lookup(EnvAPIURL); ok && value != "" && (cfg.APIURL == "" || cfg.APIURL == DefaultAPIURL) {
		cfg.APIURL = value
	}
}

// Validate fills defaults and checks formatting of the provided settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Owner == "" {
		settings.Owner = DefaultOwner
	}

	if settings.Repo == "" {
		settings.Repo = DefaultRepo
	}

	if settings.APIURL == "" {
		settings.APIURL = DefaultAPIURL
	}

	if _, err := url.ParseRequestURI(settings.APIURL); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%s: %w", settings.LogLevel, errInvalidLogLevel)
	}

	if settings.ToolCache == "" {
		settings.ToolCache = defaultToolCache()
	}

	if settings.TempDir == "" {
		settings.TempDir = os.TempDir()
	}

	validateDownload(&settings.Download)

	if settings.WarmUp.Timeout <= 0 {
		settings.WarmUp.Timeout = DefaultWarmUpTimeout
	}

	return nil
}

func validateDownload(d *Download) {
	if d.MaxTries == 0 {
		d.MaxTries = DefaultMaxTries
	}

	if d.InitialInterval <= 0 {
		d.InitialInterval = DefaultInitialInterval
	}

	if d.MaxInterval <= 0 {
		d.MaxInterval = DefaultMaxInterval
	}

	if d.MaxElapsed <= 0 {
		d.MaxElapsed = DefaultMaxElapsed
	}
}

// defaultToolCache is used outside of the Actions runner.
func defaultToolCache() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "setup-nextflow", "tool-cache")
	}

	return filepath.Join(os.TempDir(), "setup-nextflow", "tool-cache")
}
