// Package config handles configuration for the otpagent process,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the agent.
//
// Fields:
//   - EndpointAddrGRPC: bind address of the agent's gRPC endpoint. Keep it on loopback.
//   - DatabaseDriver / DatabaseDSN / DataDir: where the vault lives, as for the CLI.
//   - SecretKey: HMAC secret for signing session JWTs (HS256). Empty means a
//     random key per process, which invalidates sessions on restart.
//   - SessionTTL: lifetime of a session; the vault auto-locks when it ends.
//   - LogLevel: slog level name.
type Config struct {
	EndpointAddrGRPC string        `env:"OTPAGENT_ADDR"`
	DatabaseDriver   string        `env:"OTPKEEPER_DB_DRIVER"`
	DatabaseDSN      string        `env:"OTPKEEPER_DB_DSN"`
	DataDir          string        `env:"OTPKEEPER_DATA_DIR"`
	SecretKey        string        `env:"OTPAGENT_SECRET_KEY"`
	SessionTTL       time.Duration `env:"OTPAGENT_SESSION_TTL"`
	LogLevel         string        `env:"OTPAGENT_LOG_LEVEL"`
}

// LoadDefaults populates Config with defaults suitable for a single-user
// workstation.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = "127.0.0.1:50052"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = ""
	c.DataDir = ".otpkeeper"
	c.SecretKey = ""
	c.SessionTTL = 15 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
