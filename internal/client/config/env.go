package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type kdfEnv struct {
	Time      uint32 `env:"OTPKEEPER_KDF_TIME"`
	MemoryKiB uint32 `env:"OTPKEEPER_KDF_MEMORY_KIB"`
	Threads   uint8  `env:"OTPKEEPER_KDF_THREADS"`
}

// parseEnv overlays Config with environment variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the process environment win over it. Unset variables leave fields alone.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	k := kdfEnv{Time: cfg.KDF.Time, MemoryKiB: cfg.KDF.MemoryKiB, Threads: cfg.KDF.Threads}
	if err := env.Parse(&k); err != nil {
		panic(err)
	}
	cfg.KDF.Time, cfg.KDF.MemoryKiB, cfg.KDF.Threads = k.Time, k.MemoryKiB, k.Threads
}
