// Package otp implements RFC 4226 HOTP and RFC 6238 TOTP code generation.
//
// Every function is pure: the same inputs always produce the same code and
// nothing is cached between calls. Secrets are raw bytes here; Base32 text
// handling lives in package base32x.
//
// Codes are produced in two steps. Truncate runs the HMAC and the RFC 4226
// dynamic truncation and yields a 31-bit value; a Renderer turns that value
// into the string shown to the user. HOTP and TOTP use the Decimal renderer,
// vendor variants (Steam, hex) plug in their own.
package otp

import (
	"encoding/binary"
	"fmt"
)

const (
	MinDigits = 4
	MaxDigits = 10

	DefaultDigits = 6
	DefaultPeriod = 30
)

func validateDigits(digits int) error {
	if digits < MinDigits || digits > MaxDigits {
		return fmt.Errorf("%w: digits must be in [%d,%d], got %d", ErrInvalidParameter, MinDigits, MaxDigits, digits)
	}
	return nil
}

// Truncate returns the RFC 4226 dynamically truncated 31-bit value of
// HMAC(secret, counter).
func Truncate(secret []byte, counter uint64, alg Algorithm) (uint32, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	sum, err := HMAC(alg, secret, msg[:])
	if err != nil {
		return 0, err
	}

	offset := sum[len(sum)-1] & 0x0f
	return binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff, nil
}

// Generate computes the code for counter and renders it with r.
func Generate(secret []byte, counter uint64, digits int, alg Algorithm, r Renderer) (string, error) {
	if err := validateDigits(digits); err != nil {
		return "", err
	}
	v, err := Truncate(secret, counter, alg)
	if err != nil {
		return "", err
	}
	return r.Render(v, digits), nil
}

// HOTP returns the decimal RFC 4226 code for counter, zero-padded to digits.
func HOTP(secret []byte, counter uint64, digits int, alg Algorithm) (string, error) {
	return Generate(secret, counter, digits, alg, Decimal)
}

// TimeStep returns the TOTP counter for timestamp ts.
func TimeStep(ts uint64, period uint32, epoch0 uint64) (uint64, error) {
	if period == 0 {
		return 0, fmt.Errorf("%w: period must be positive", ErrInvalidParameter)
	}
	if ts < epoch0 {
		return 0, fmt.Errorf("%w: timestamp %d before epoch %d", ErrInvalidParameter, ts, epoch0)
	}
	return (ts - epoch0) / uint64(period), nil
}

// TOTP returns the RFC 6238 code for the Unix timestamp ts.
func TOTP(secret []byte, ts uint64, period uint32, digits int, alg Algorithm, epoch0 uint64) (string, error) {
	counter, err := TimeStep(ts, period, epoch0)
	if err != nil {
		return "", err
	}
	return HOTP(secret, counter, digits, alg)
}

// SecondsRemaining reports how long the code for ts stays valid.
func SecondsRemaining(ts uint64, period uint32) uint32 {
	if period == 0 {
		return 0
	}
	return period - uint32(ts%uint64(period))
}
