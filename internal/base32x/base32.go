// Package base32x decodes and encodes the RFC 4648 Base32 text form used for
// OTP shared secrets.
//
// Input is accepted the way users actually type or scan it: any case, with
// or without '=' padding, with whitespace anywhere. Output is always the
// canonical uppercase padded form.
package base32x

import (
	"encoding/base32"
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidEncoding = errors.New("invalid base32 encoding")

var (
	padded   = base32.StdEncoding
	unpadded = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// clean strips whitespace and trailing padding and uppercases the rest.
// It reports false if a character outside the alphabet is found.
func clean(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			continue
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '2' && r <= '7', r == '=':
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	out := strings.TrimRight(b.String(), "=")
	// padding is only allowed at the end
	if strings.Contains(out, "=") {
		return "", false
	}
	return out, true
}

// Decode returns the bytes encoded by secret.
func Decode(secret string) ([]byte, error) {
	s, ok := clean(secret)
	if !ok || s == "" {
		return nil, ErrInvalidEncoding
	}
	b, err := unpadded.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidEncoding, err)
	}
	return b, nil
}

// Encode returns the uppercase, '='-padded encoding of b.
func Encode(b []byte) string {
	return padded.EncodeToString(b)
}

// Normalize validates secret and returns it uppercase without whitespace
// or padding, which is the form stored and placed in otpauth URIs.
func Normalize(secret string) (string, error) {
	b, err := Decode(secret)
	if err != nil {
		return "", err
	}
	return unpadded.EncodeToString(b), nil
}
