// Package logging is the structured logger shared by the agent, the CLI and
// the vault service. SlogLogger is the only implementation.
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	log.Info(ctx, "agent listening", "addr", addr)
//
// Secrets and passphrases must never be passed as values. Entries log
// through slog.LogValuer, which omits the secret.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every record of the returned logger.
	With(args ...any) Logger
}
