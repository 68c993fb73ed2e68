package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Seed.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	content := `
http:
  addr: ":9090"
  read_timeout: 2s
  cors_origins: ["https://books.example.com"]
log:
  format: text
seed:
  enabled: true
  currency: EUR
  fiscal_year: 2024
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.WriteTimeout, "unset keys keep their default")
	assert.Equal(t, []string{"https://books.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, "EUR", cfg.Seed.Currency)
	assert.Equal(t, 2024, cfg.Seed.FiscalYear)
	assert.Equal(t, "Demo Business", cfg.Seed.Name)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestApplyEnvWinsOverFile(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Addr = ":9090"

	err := cfg.ApplyEnv(env(map[string]string{
		"DATABASE_URL": "postgres://ledger@localhost/ledger",
		"HTTP_ADDR":    ":7070",
		"LOG_LEVEL":    "debug",
		"LOG_FORMAT":   "text",
		"DEV_SEED":     "yes",
		"CORS_ORIGINS": "https://a.example.com, ,https://b.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.Database.URL)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSOrigins)
}

func TestApplyEnvRejectsBadSeedFlag(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{"DEV_SEED": "maybe"}))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty addr":     func(c *Config) { c.HTTP.Addr = "" },
		"bad level":      func(c *Config) { c.Log.Level = "loud" },
		"bad format":     func(c *Config) { c.Log.Format = "xml" },
		"bad business":   func(c *Config) { c.Seed.BusinessID = "acme" },
		"bad currency":   func(c *Config) { c.Seed.Currency = "DOLLARS" },
		"bad month":      func(c *Config) { c.Seed.StartMonth = 13 },
		"bad fiscalyear": func(c *Config) { c.Seed.FiscalYear = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
