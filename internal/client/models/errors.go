package models

import "errors"

var (
	// ErrInvalidOperation is returned for calls that make no sense for the
	// entry's kind, such as advancing the counter of a time-based entry.
	ErrInvalidOperation = errors.New("invalid operation for entry kind")

	// ErrLocked is returned when an operation needs the decrypted secret but
	// the entry has not been unlocked.
	ErrLocked = errors.New("entry is locked")
)
