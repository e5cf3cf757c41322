// Package common defines constants and sentinel errors shared by the
// vault service, the agent and the CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Vault state errors.
	ErrVaultLocked          = errors.New("vault is locked")
	ErrPassphraseRequired   = errors.New("passphrase required")
	ErrPassphraseAlreadySet = errors.New("passphrase already set")
	ErrNoPassphrase         = errors.New("vault has no passphrase")
	ErrUnlockAborted        = errors.New("unlock aborted")

	// Backup errors.
	ErrUnsupportedBackup = errors.New("unsupported backup format")

	// Agent session errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
