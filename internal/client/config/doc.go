// Package config loads runtime configuration for the otpkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables, after loading an optional .env file.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-b string   database driver: sqlite or pgx
//	-d string   database DSN
//	-a string   otpagent address; when set the CLI talks to the agent
//	-i int      watch refresh interval (seconds)
//	-l string   log level: debug, info, warn, error
//
// Environment
//
//	OTPKEEPER_DB_DRIVER, OTPKEEPER_DB_DSN, OTPKEEPER_DATA_DIR,
//	OTPKEEPER_AGENT_ADDR, OTPKEEPER_REFRESH_INTERVAL (e.g. "2s"),
//	OTPKEEPER_LOG_LEVEL, OTPKEEPER_KDF_TIME, OTPKEEPER_KDF_MEMORY_KIB,
//	OTPKEEPER_KDF_THREADS
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "1s" or integer nanoseconds:
//
//	{
//	  "database_driver": "sqlite",
//	  "database_dsn": "",
//	  "data_dir": ".otpkeeper",
//	  "agent_addr": "",
//	  "refresh_interval": "1s",
//	  "log_level": "warn",
//	  "kdf": {"time": 1, "memory_kib": 65536, "threads": 4}
//	}
package config
