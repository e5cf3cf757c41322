package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/otpkeeper/internal/otp"
)

// Kind selects how an entry derives and renders its codes. The numeric
// values match the type codes older vaults stored.
type Kind int

const (
	KindTOTP Kind = iota + 1
	KindHOTP
	KindBattle
	KindSteam
	KindHex
	KindHOTPHex
)

var kindNames = map[Kind]string{
	KindTOTP:    "totp",
	KindHOTP:    "hotp",
	KindBattle:  "battle",
	KindSteam:   "steam",
	KindHex:     "hex",
	KindHOTPHex: "hhex",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsCounterBased reports whether codes come from the stored counter rather
// than the clock.
func (k Kind) IsCounterBased() bool {
	return k == KindHOTP || k == KindHOTPHex
}

// Renderer returns the code rendering strategy for the kind.
func (k Kind) Renderer() otp.Renderer {
	switch k {
	case KindSteam:
		return otp.Steam
	case KindHex, KindHOTPHex:
		return otp.Hex
	default:
		return otp.Decimal
	}
}

// DefaultDigits is the code length used when none is given.
func (k Kind) DefaultDigits() int {
	switch k {
	case KindSteam:
		return otp.SteamLength
	case KindBattle:
		return 8
	default:
		return otp.DefaultDigits
	}
}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", otp.ErrInvalidParameter, s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: kind %d", otp.ErrInvalidParameter, int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON takes a kind name or one of the legacy numeric codes.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if !Kind(n).Valid() {
			return fmt.Errorf("%w: kind %d", otp.ErrInvalidParameter, n)
		}
		*k = Kind(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
