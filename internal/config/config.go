// Package config loads service configuration. Values are layered: built-in
// defaults, then an optional YAML file, then environment variables. A .env
// file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML config path when no
// --config flag is given.
const EnvConfigPath = "LEDGER_CONFIG"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Seed     SeedConfig     `yaml:"seed"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the backend: an empty URL means the in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SeedConfig describes the development tenant created by `seed` and by
// `serve` when Enabled is set.
type SeedConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BusinessID string `yaml:"business_id,omitempty"`
	Name       string `yaml:"name"`
	Currency   string `yaml:"currency"`
	FiscalYear int    `yaml:"fiscal_year"`
	// StartMonth is the first month of the fiscal year, 1-12.
	StartMonth int `yaml:"start_month"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Seed: SeedConfig{
			Name:       "Demo Business",
			Currency:   "USD",
			FiscalYear: time.Now().UTC().Year(),
			StartMonth: 1,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Resolve builds the effective configuration for the process: .env, the
// YAML file at path (or $LEDGER_CONFIG), then environment overrides.
func Resolve(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv
// outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("DATABASE_URL")); v != "" {
		c.Database.URL = v
	}
	if v := strings.TrimSpace(getenv("HTTP_ADDR")); v != "" {
		c.HTTP.Addr = v
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv("LOG_FORMAT")); v != "" {
		c.Log.Format = v
	}
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	if v := strings.ToLower(strings.TrimSpace(getenv("DEV_SEED"))); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			c.Seed.Enabled = true
		case "0", "false", "no", "off":
			c.Seed.Enabled = false
		default:
			return fmt.Errorf("DEV_SEED: unrecognised value %q", v)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.Seed.BusinessID != "" {
		if _, err := uuid.Parse(c.Seed.BusinessID); err != nil {
			return fmt.Errorf("seed.business_id: %w", err)
		}
	}
	if len(strings.TrimSpace(c.Seed.Currency)) != 3 {
		return fmt.Errorf("seed.currency must be a 3 letter ISO code, got %q", c.Seed.Currency)
	}
	if c.Seed.StartMonth < 1 || c.Seed.StartMonth > 12 {
		return fmt.Errorf("seed.start_month must be between 1 and 12, got %d", c.Seed.StartMonth)
	}
	if c.Seed.FiscalYear <= 0 {
		return fmt.Errorf("seed.fiscal_year must be positive, got %d", c.Seed.FiscalYear)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}

// Logger builds the process logger writing to w.
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
