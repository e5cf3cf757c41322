package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"otpkeeper"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestParseJson_OverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otpkeeper.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_driver": "pgx",
		"agent_addr": "unix:/run/otp.sock",
		"refresh_interval": "10s",
		"log_level": "debug",
		"kdf": {"time": 2, "memory_kib": 1024, "threads": 1}
	}`), 0o600))

	for _, flagName := range []string{"-c", "-config", "--config"} {
		t.Run(flagName, func(t *testing.T) {
			withArgs(t, flagName, path)

			cfg := &Config{}
			cfg.LoadDefaults()
			parseJson(cfg)

			assert.Equal(t, "pgx", cfg.DatabaseDriver)
			assert.Equal(t, "unix:/run/otp.sock", cfg.AgentAddr)
			assert.Equal(t, 10*time.Second, cfg.RefreshInterval)
			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, cryptox.KDFParams{Time: 2, MemoryKiB: 1024, Threads: 1}, cfg.KDF)
			assert.Equal(t, ".otpkeeper", cfg.DataDir)
		})
	}
}

func TestParseJson_NoFileLeavesConfig(t *testing.T) {
	withArgs(t, "-a", "127.0.0.1:7000")

	cfg := &Config{AgentAddr: "defaults:1234", RefreshInterval: time.Minute}
	parseJson(cfg)

	assert.Equal(t, &Config{AgentAddr: "defaults:1234", RefreshInterval: time.Minute}, cfg)
}

func TestParseJson_BadFilePanics(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"agent_addr": `), 0o600))

	for name, path := range map[string]string{
		"invalid json": broken,
		"missing file": filepath.Join(dir, "absent.json"),
	} {
		t.Run(name, func(t *testing.T) {
			withArgs(t, "-c", path)
			assert.Panics(t, func() { parseJson(&Config{}) })
		})
	}
}
