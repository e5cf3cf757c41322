package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/flagx"
	"github.com/dmitrijs2005/otpkeeper/internal/timex"
)

// JsonConfig mirrors Config for the optional JSON file. A nil KDF keeps
// the default Argon2id cost.
type JsonConfig struct {
	DatabaseDriver  string             `json:"database_driver"`
	DatabaseDSN     string             `json:"database_dsn"`
	DataDir         string             `json:"data_dir"`
	AgentAddr       string             `json:"agent_addr"`
	RefreshInterval timex.Duration     `json:"refresh_interval"`
	LogLevel        string             `json:"log_level"`
	KDF             *cryptox.KDFParams `json:"kdf"`
}

// parseJson overlays Config with the non-empty values of the JSON file named
// by -c or -config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabaseDriver, jc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.AgentAddr, jc.AgentAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RefreshInterval.Duration > 0 {
		cfg.RefreshInterval = jc.RefreshInterval.Duration
	}
	if jc.KDF != nil {
		cfg.KDF = *jc.KDF
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
