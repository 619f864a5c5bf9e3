// Package config manages gnews configuration from multiple sources.
//
// Precedence, lowest first:
//   - built-in defaults (Default)
//   - a yaml file: --config, else $XDG_CONFIG_HOME/gnews/config.yaml when present
//   - a .env file in the working directory
//   - GNEWS_* environment variables (plus SERPAPI_API_KEY)
//   - command-line flags, applied by cmd/gnews
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/rcourtman/gnews-profiles/internal/logging"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by the provider setting.
const (
	ProviderGoogleNews = "googlenews"
	ProviderSerpAPI    = "serpapi"
)

// DefaultGoogleNewsURL is the Google News RSS search endpoint.
const DefaultGoogleNewsURL = "https://news.google.com/rss/search"

// Config holds all application configuration
type Config struct {
	StorePath      string        `yaml:"store_path"`
	OutputDir      string        `yaml:"output_dir"`
	HistoryPath    string        `yaml:"history_path"`
	HistoryEnabled bool          `yaml:"history_enabled"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	LogMaxSizeMB   int           `yaml:"log_max_size_mb"`
	LogMaxAgeDays  int           `yaml:"log_max_age_days"`
	LogCompress    bool          `yaml:"log_compress"`
	Provider       string        `yaml:"provider"`
	SerpAPIKey     string        `yaml:"serpapi_api_key"`
	GoogleNewsURL  string        `yaml:"google_news_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DNSCacheTTL    time.Duration `yaml:"dns_cache_ttl"`

	// Source is the config file that was read, if any.
	Source string `yaml:"-"`
	// EnvOverrides records which settings came from the environment.
	EnvOverrides map[string]bool `yaml:"-"`
}

// Default returns the configuration used when nothing overrides it. Paths are
// relative to the working directory.
func Default() *Config {
	return &Config{
		StorePath:      "search_profiles.json",
		OutputDir:      "google_news_search_result",
		HistoryPath:    "google_news_history.db",
		HistoryEnabled: true,
		LogFile:        logging.DefaultFilePath,
		LogLevel:       "info",
		LogFormat:      "auto",
		LogMaxSizeMB:   10,
		LogMaxAgeDays:  30,
		LogCompress:    true,
		Provider:       ProviderGoogleNews,
		GoogleNewsURL:  DefaultGoogleNewsURL,
		RequestTimeout: 30 * time.Second,
		DNSCacheTTL:    5 * time.Minute,
		EnvOverrides:   make(map[string]bool),
	}
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "gnews", "config.yaml")
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional. The result is not validated: callers layer flags on top
// and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	// Best-effort .env loading (not required)
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env in current directory")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if c.EnvOverrides == nil {
		c.EnvOverrides = make(map[string]bool)
	}
	c.Source = path
	log.Debug().Str("file", path).Msg("Loaded configuration file")
	return nil
}

func (c *Config) applyEnv() {
	str := func(key, setting string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			c.EnvOverrides[setting] = true
		}
	}
	str("GNEWS_STORE_PATH", "store_path", &c.StorePath)
	str("GNEWS_OUTPUT_DIR", "output_dir", &c.OutputDir)
	str("GNEWS_HISTORY_PATH", "history_path", &c.HistoryPath)
	str("GNEWS_LOG_FILE", "log_file", &c.LogFile)
	str("GNEWS_LOG_LEVEL", "log_level", &c.LogLevel)
	str("GNEWS_LOG_FORMAT", "log_format", &c.LogFormat)
	str("GNEWS_PROVIDER", "provider", &c.Provider)
	str("SERPAPI_API_KEY", "serpapi_api_key", &c.SerpAPIKey)
	str("GNEWS_GOOGLE_NEWS_URL", "google_news_base_url", &c.GoogleNewsURL)

	if v := strings.TrimSpace(os.Getenv("GNEWS_HISTORY_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.HistoryEnabled = b
			c.EnvOverrides["history_enabled"] = true
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid GNEWS_HISTORY_ENABLED")
		}
	}
	if v := strings.TrimSpace(os.Getenv("GNEWS_REQUEST_TIMEOUT")); v != "" {
		if d, err := parseSeconds(v); err == nil {
			c.RequestTimeout = d
			c.EnvOverrides["request_timeout"] = true
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid GNEWS_REQUEST_TIMEOUT")
		}
	}

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
}

// parseSeconds accepts either a Go duration ("45s") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the settings every command depends on. Provider settings
// are checked separately by ValidateProvider.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.StorePath) == "" {
		problems = append(problems, "store_path must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		problems = append(problems, "output_dir must not be empty")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.DNSCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("dns_cache_ttl must not be negative, got %s", c.DNSCacheTTL))
	}
	if !logging.ValidLevel(c.LogLevel) {
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	if !logging.ValidFormat(c.LogFormat) {
		problems = append(problems, fmt.Sprintf("invalid log format %q", c.LogFormat))
	}
	return joinProblems(problems)
}

// ValidateProvider checks the settings needed to run a search.
func (c *Config) ValidateProvider() error {
	var problems []string

	switch c.Provider {
	case ProviderGoogleNews:
		u, err := url.Parse(c.GoogleNewsURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("google_news_base_url %q must be an absolute http(s) URL", c.GoogleNewsURL))
		}
	case ProviderSerpAPI:
		if strings.TrimSpace(c.SerpAPIKey) == "" {
			problems = append(problems, "provider serpapi requires serpapi_api_key (or SERPAPI_API_KEY)")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q (valid: %s, %s)", c.Provider, ProviderGoogleNews, ProviderSerpAPI))
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// LoggingConfig converts the log settings for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Format:     c.LogFormat,
		Level:      c.LogLevel,
		Component:  "gnews",
		FilePath:   c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}
