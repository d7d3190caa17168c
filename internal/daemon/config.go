// Package daemon manages the Quit Vipe daemon lifecycle and configuration.
package daemon

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/logger"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Auth      AuthConfig      `toml:"auth"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Cache     CacheConfig     `toml:"cache"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// AuthConfig holds the cookie and bearer token secrets.
type AuthConfig struct {
	SessionSecret string `toml:"session_secret"`
	TokenSecret   string `toml:"token_secret"`
	TokenTTL      string `toml:"token_ttl"`
	CookieSecure  bool   `toml:"cookie_secure"`
}

// TrackerConfig tunes day boundaries and badge rules.
type TrackerConfig struct {
	Timezone           string `toml:"timezone"`
	StreakLookbackDays int    `toml:"streak_lookback_days"`
	TodayGrace         bool   `toml:"today_grace"`
	DefaultBaseline    int    `toml:"default_baseline"`
	MaxBackdate        string `toml:"max_backdate"`
}

// CacheConfig selects the stats cache. An empty redis address uses an
// in-process cache.
type CacheConfig struct {
	RedisAddr string `toml:"redis_addr"`
	Prefix    string `toml:"prefix"`
	TTL       string `toml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	homeDir := quitvipeHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8420,
			CORSOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			TokenTTL: "720h",
		},
		Tracker: TrackerConfig{
			Timezone:           "UTC",
			StreakLookbackDays: 30,
			TodayGrace:         true,
			DefaultBaseline:    200,
			MaxBackdate:        "720h",
		},
		Cache: CacheConfig{
			Prefix: "quitvipe:",
			TTL:    "5m",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "console",
			File:      filepath.Join(homeDir, "quitvipe.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $QUITVIPE_HOME/config.toml, falling back to
// defaults, then applies environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QUITVIPE_SESSION_SECRET"); v != "" {
		c.Auth.SessionSecret = v
	}
	if v := os.Getenv("QUITVIPE_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}
	if v := os.Getenv("QUITVIPE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
}

// Validate checks the values the daemon cannot start without.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is empty (run 'quitvipe config init' or set QUITVIPE_SESSION_SECRET)")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is empty (run 'quitvipe config init' or set QUITVIPE_TOKEN_SECRET)")
	}
	if _, err := tracker.LoadLocation(c.Tracker.Timezone); err != nil {
		return fmt.Errorf("tracker.timezone: %w", err)
	}
	if c.Tracker.DefaultBaseline < 0 {
		return fmt.Errorf("tracker.default_baseline must be zero or more")
	}
	return nil
}

// TrackerOptions converts the [tracker] and [cache] sections.
func (c Config) TrackerOptions() (tracker.Options, error) {
	loc, err := tracker.LoadLocation(c.Tracker.Timezone)
	if err != nil {
		return tracker.Options{}, fmt.Errorf("tracker.timezone: %w", err)
	}
	def := tracker.DefaultOptions()
	return tracker.Options{
		Location:        loc,
		StreakLookback:  c.Tracker.StreakLookbackDays,
		TodayGrace:      c.Tracker.TodayGrace,
		DefaultBaseline: c.Tracker.DefaultBaseline,
		MaxBackdate:     parseDuration(c.Tracker.MaxBackdate, def.MaxBackdate),
		StatsTTL:        parseDuration(c.Cache.TTL, def.StatsTTL),
	}, nil
}

// LoggerConfig converts the [logging] section.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		File:      c.Logging.File,
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
	}
}

// TokenTTL returns the bearer token lifetime.
func (c Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 30*24*time.Hour)
}

// InitSecrets fills empty secrets with random values.
func (c *Config) InitSecrets() error {
	for _, s := range []*string{&c.Auth.SessionSecret, &c.Auth.TokenSecret} {
		if *s != "" {
			continue
		}
		v, err := randomSecret()
		if err != nil {
			return err
		}
		*s = v
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SaveConfig writes the config to $QUITVIPE_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(quitvipeHome(), "config.toml")
}

// quitvipeHome returns the Quit Vipe data directory.
func quitvipeHome() string {
	if env := os.Getenv("QUITVIPE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quitvipe")
}

// Home is exported for use by other packages.
func Home() string {
	return quitvipeHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
