package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"hash"
	"strings"
)

// Algorithm selects the keyed hash used by HOTP/TOTP. The zero value is SHA1,
// the RFC 6238 default.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
	SHA512
)

func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "SHA1"
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

func (a Algorithm) hashFunc() (func() hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
}

// ParseAlgorithm maps an otpauth "algorithm" value to an Algorithm.
// Matching ignores case and an optional dash ("sha-256").
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "") {
	case "SHA1":
		return SHA1, nil
	case "SHA256":
		return SHA256, nil
	case "SHA512":
		return SHA512, nil
	default:
		return SHA1, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// HMAC computes the keyed hash of msg under key.
func HMAC(alg Algorithm, key, msg []byte) ([]byte, error) {
	fn, err := alg.hashFunc()
	if err != nil {
		return nil, err
	}
	m := hmac.New(fn, key)
	m.Write(msg)
	return m.Sum(nil), nil
}

func (a Algorithm) MarshalJSON() ([]byte, error) {
	if _, err := a.hashFunc(); err != nil {
		return nil, err
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the algorithm name or the numeric codes older
// records used (1=SHA1, 2=SHA256, 3=SHA512).
func (a *Algorithm) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		switch n {
		case 1:
			*a = SHA1
		case 2:
			*a = SHA256
		case 3:
			*a = SHA512
		default:
			return fmt.Errorf("%w: code %d", ErrUnsupportedAlgorithm, n)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*a = SHA1
		return nil
	}
	v, err := ParseAlgorithm(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
