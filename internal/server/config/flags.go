package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/flagx"
)

// parseFlags overlays agent flags onto c:
//
//	-a  listen address, host:port or unix:PATH
//	-b  database driver (sqlite or pgx)
//	-d  database DSN
//	-s  JWT HMAC secret key
//	-t  session TTL in minutes, also the auto-lock delay
//	-l  log level
//
// It panics on malformed values.
func parseFlags(c *Config) {
	fs := flag.NewFlagSet("otpagent", flag.ContinueOnError)

	fs.StringVar(&c.EndpointAddrGRPC, "a", c.EndpointAddrGRPC, "listen address")
	fs.StringVar(&c.DatabaseDriver, "b", c.DatabaseDriver, "database driver")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "JWT secret key")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")
	ttl := fs.Int("t", int(c.SessionTTL/time.Minute), "session TTL, minutes")

	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-d", "-s", "-t", "-l"})); err != nil {
		panic(err)
	}
	c.SessionTTL = time.Duration(*ttl) * time.Minute
}
