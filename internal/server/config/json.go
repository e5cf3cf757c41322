package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/otpkeeper/internal/flagx"
	"github.com/dmitrijs2005/otpkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the agent configuration. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDriver   string         `json:"database_driver"`
	DatabaseDSN      string         `json:"database_dsn"`
	DataDir          string         `json:"data_dir"`
	SecretKey        string         `json:"secret_key"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads the file named by -c or -config, if any, over config.
// Empty values in the file leave the current value in place. Read or
// unmarshal errors panic.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	for dst, v := range map[*string]string{
		&config.EndpointAddrGRPC: c.EndpointAddrGRPC,
		&config.DatabaseDriver:   c.DatabaseDriver,
		&config.DatabaseDSN:      c.DatabaseDSN,
		&config.DataDir:          c.DataDir,
		&config.SecretKey:        c.SecretKey,
		&config.LogLevel:         c.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
}
