package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/flagx"
)

// parseFlags overlays CLI flags onto c:
//
//	-b  database driver (sqlite or pgx)
//	-d  database DSN
//	-a  otpagent address; empty opens the vault locally
//	-i  watch refresh interval in seconds
//	-l  log level
//
// It panics on malformed values.
func parseFlags(c *Config) {
	fs := flag.NewFlagSet("otpkeeper", flag.ContinueOnError)

	fs.StringVar(&c.DatabaseDriver, "b", c.DatabaseDriver, "database driver: sqlite or pgx")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.AgentAddr, "a", c.AgentAddr, "otpagent address")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")
	interval := fs.Int("i", int(c.RefreshInterval/time.Second), "watch refresh interval, seconds")

	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-b", "-d", "-a", "-i", "-l"})); err != nil {
		panic(err)
	}
	c.RefreshInterval = time.Duration(*interval) * time.Second
}
