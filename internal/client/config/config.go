package config

import (
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
)

// Config holds runtime settings for the otpkeeper CLI.
//
// Fields:
//   - DatabaseDriver: "sqlite" (default) or "pgx".
//   - DatabaseDSN: driver DSN; empty means vault.db inside DataDir.
//   - DataDir: directory, relative to the working directory, for the local vault.
//   - AgentAddr: address of a running otpagent; empty works on the local vault.
//   - RefreshInterval: how often the watch command redraws codes.
//   - LogLevel: slog level name for diagnostic output.
//   - KDF: Argon2id cost used when a new passphrase is set.
type Config struct {
	DatabaseDriver  string        `env:"OTPKEEPER_DB_DRIVER"`
	DatabaseDSN     string        `env:"OTPKEEPER_DB_DSN"`
	DataDir         string        `env:"OTPKEEPER_DATA_DIR"`
	AgentAddr       string        `env:"OTPKEEPER_AGENT_ADDR"`
	RefreshInterval time.Duration `env:"OTPKEEPER_REFRESH_INTERVAL"`
	LogLevel        string        `env:"OTPKEEPER_LOG_LEVEL"`
	KDF             cryptox.KDFParams
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = ""
	c.DataDir = ".otpkeeper"
	c.AgentAddr = ""
	c.RefreshInterval = time.Second
	c.LogLevel = "warn"
	c.KDF = cryptox.DefaultKDFParams
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
