package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the full suite configuration. It is passed explicitly to the
// scenario suite; nothing reads credentials from the environment after load.
type Config struct {
	Global    GlobalConfig   `mapstructure:"global"`
	Kraken    KrakenConfig   `mapstructure:"kraken"`
	Scenarios ScenarioConfig `mapstructure:"scenarios"`
}

// GlobalConfig process-level settings
type GlobalConfig struct {
	LogLevel    string `mapstructure:"log_level"`    // debug, info, warn, error
	MetricsPort int    `mapstructure:"metrics_port"` // 0 disables the metrics server
}

// KrakenConfig endpoint and credentials
type KrakenConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"` // base64
	OTP       string `mapstructure:"otp"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// ScenarioConfig controls the godog run
type ScenarioConfig struct {
	Pair        string `mapstructure:"pair"`
	Format      string `mapstructure:"format"`
	Tags        string `mapstructure:"tags"`
	Concurrency int    `mapstructure:"concurrency"`
}

// envBindings maps config keys to the environment variables consulted for
// them, in priority order. The unprefixed names are the ones the suite has
// always documented.
var envBindings = map[string][]string{
	"kraken.base_url":     {"KRAKEN_BASE_URL"},
	"kraken.api_key":      {"KRAKEN_API_KEY", "API_KEY"},
	"kraken.api_secret":   {"KRAKEN_API_SECRET", "API_SECRET"},
	"kraken.otp":          {"KRAKEN_OTP", "OTP"},
	"global.log_level":    {"KRAKEN_LOG_LEVEL"},
	"global.metrics_port": {"KRAKEN_METRICS_PORT"},
	"scenarios.pair":      {"KRAKEN_PAIR"},
}

var validFormats = map[string]bool{
	"pretty":   true,
	"progress": true,
	"cucumber": true,
	"junit":    true,
	"events":   true,
}

// LoadConfig reads path (YAML, optional when empty), then overlays envFile
// (optional, read without touching the process environment), then the real
// environment.
func LoadConfig(path, envFile string) (*Config, error) {
	v, err := newViper(path, envFile)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("env_file", envFile).Msg("config loaded")
	return cfg, nil
}

// Watch loads the config and calls onChange with every valid revision of
// path. Invalid revisions are logged and skipped.
func Watch(path, envFile string, onChange func(*Config)) (*Config, error) {
	if path == "" {
		return nil, errors.New("watch requires a config file")
	}
	v, err := newViper(path, envFile)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		log.Info().Str("file", e.Name).Msg("config file changed, reloading")
		next, err := decode(v)
		if err != nil {
			log.Error().Err(err).Msg("new config rejected, keeping the previous one")
			return
		}
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper(path, envFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("global.log_level", "info")
	v.SetDefault("global.metrics_port", 0)
	v.SetDefault("kraken.base_url", "https://api.kraken.com")
	v.SetDefault("kraken.timeout_ms", 10000)
	v.SetDefault("scenarios.pair", "XBTUSD")
	v.SetDefault("scenarios.format", "pretty")
	v.SetDefault("scenarios.concurrency", 1)

	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if envFile != "" {
		dotenv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		applyDotenv(v, dotenv)
	}
	return v, nil
}

// applyDotenv sets keys from the .env map unless the process environment
// already provides them.
func applyDotenv(v *viper.Viper, dotenv map[string]string) {
	for key, names := range envBindings {
		if envSet(names) {
			continue
		}
		for _, name := range names {
			if val, ok := dotenv[name]; ok {
				v.Set(key, val)
				break
			}
		}
	}
}

// envSet reports whether any of names holds a non-empty value. viper ignores
// empty variables, so an exported but empty one must not shadow the .env file.
func envSet(names []string) bool {
	for _, name := range names {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// validateConfig checks the decoded config and normalizes a few fields.
func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.Kraken.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("kraken.base_url must be an absolute URL, got %q", cfg.Kraken.BaseURL)
	}
	cfg.Kraken.BaseURL = strings.TrimRight(cfg.Kraken.BaseURL, "/")
	if cfg.Kraken.TimeoutMs <= 0 {
		return fmt.Errorf("kraken.timeout_ms must be > 0")
	}
	if cfg.Kraken.APISecret != "" {
		if _, err := base64.StdEncoding.DecodeString(cfg.Kraken.APISecret); err != nil {
			return fmt.Errorf("kraken.api_secret is not valid base64: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Scenarios.Pair) == "" {
		return fmt.Errorf("scenarios.pair must not be empty")
	}
	if !validFormats[cfg.Scenarios.Format] {
		return fmt.Errorf("scenarios.format %q not supported", cfg.Scenarios.Format)
	}
	if cfg.Scenarios.Concurrency < 1 {
		return fmt.Errorf("scenarios.concurrency must be >= 1")
	}
	if cfg.Global.MetricsPort < 0 || cfg.Global.MetricsPort > 65535 {
		return fmt.Errorf("global.metrics_port out of range")
	}
	return nil
}

// HasCredentials reports whether private scenarios can be signed.
func (c *Config) HasCredentials() bool {
	return c.Kraken.APIKey != "" && c.Kraken.APISecret != ""
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Kraken.TimeoutMs) * time.Millisecond
}
