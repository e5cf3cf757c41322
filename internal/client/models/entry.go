// Package models defines the OTP account record kept in the vault.
package models

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrijs2005/otpkeeper/internal/base32x"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
	"github.com/dmitrijs2005/otpkeeper/internal/otpauth"
	"github.com/google/uuid"
)

// Entry is one OTP account. The decrypted secret lives only in memory,
// after Unlock or Reencrypt, and is never serialized or printed.
type Entry struct {
	Hash      string
	Issuer    string
	Account   string
	Kind      Kind
	Algorithm otp.Algorithm
	Period    uint32
	Digits    int
	Counter   uint64
	Pinned    bool
	Secret    StoredSecret

	key []byte
}

// Params describe a new entry, from a form or a parsed otpauth URI.
// Zero values get per-kind defaults.
type Params struct {
	Issuer    string
	Account   string
	Kind      Kind
	Secret    string // Base32
	Algorithm otp.Algorithm
	Period    uint32
	Digits    int
	Counter   uint64
}

// ParamsFromDescriptor converts a parsed otpauth URI.
func ParamsFromDescriptor(d otpauth.Descriptor) Params {
	kind := KindTOTP
	if d.Type == otpauth.TypeHOTP {
		kind = KindHOTP
	}
	return Params{
		Issuer:    d.Issuer,
		Account:   d.Account,
		Kind:      kind,
		Secret:    d.Secret,
		Algorithm: d.Algorithm,
		Period:    d.Period,
		Digits:    d.Digits,
		Counter:   d.Counter,
	}
}

// New validates p and builds an unlocked entry with a fresh random hash.
// When ring is non-nil the secret is encrypted before New returns, so a
// plain copy never reaches the store.
func New(p Params, ring *cryptox.Keyring) (*Entry, error) {
	if p.Kind == 0 {
		p.Kind = KindTOTP
	}

	secret, err := base32x.Normalize(p.Secret)
	if err != nil {
		return nil, err
	}
	key, err := base32x.Decode(secret)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		Hash:      uuid.NewString(),
		Issuer:    strings.TrimSpace(p.Issuer),
		Account:   strings.TrimSpace(p.Account),
		Kind:      p.Kind,
		Algorithm: p.Algorithm,
		Period:    p.Period,
		Digits:    p.Digits,
		Counter:   p.Counter,
	}
	e.applyDefaults()
	if err := e.validate(); err != nil {
		return nil, err
	}

	if ring != nil {
		enc, err := ring.Encrypt([]byte(secret), e.aad())
		if err != nil {
			return nil, err
		}
		e.Secret = StoredSecret{Encrypted: enc}
	} else {
		e.Secret = StoredSecret{Plain: secret}
	}
	e.key = key

	return e, nil
}

func (e *Entry) applyDefaults() {
	if e.Kind == 0 {
		e.Kind = KindTOTP
	}
	if e.Period == 0 {
		e.Period = otp.DefaultPeriod
	}
	if e.Digits == 0 || e.Kind == KindSteam {
		e.Digits = e.Kind.DefaultDigits()
	}
}

func (e *Entry) validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: kind %d", otp.ErrInvalidParameter, int(e.Kind))
	}
	if e.Period == 0 {
		return fmt.Errorf("%w: period must be positive", otp.ErrInvalidParameter)
	}
	if e.Digits < otp.MinDigits || e.Digits > otp.MaxDigits {
		return fmt.Errorf("%w: digits %d", otp.ErrInvalidParameter, e.Digits)
	}
	return otpauth.CheckAccount(e.Account)
}

// aad binds ciphertext to the record it belongs to.
func (e *Entry) aad() []byte {
	return []byte(e.Hash)
}

// IsUnlocked reports whether the secret is available in memory.
func (e *Entry) IsUnlocked() bool {
	return e.key != nil
}

// Unlock makes the secret available for code generation. Encrypted secrets
// need ring; a wrong key surfaces cryptox.ErrAuthenticationFailed.
func (e *Entry) Unlock(ring *cryptox.Keyring) error {
	plain, err := e.plaintext(ring)
	if err != nil {
		return err
	}
	key, err := base32x.Decode(plain)
	if err != nil {
		return err
	}
	e.Lock()
	e.key = key
	return nil
}

// Lock wipes the in-memory secret.
func (e *Entry) Lock() {
	common.WipeByteArray(e.key)
	e.key = nil
}

// plaintext returns the Base32 secret, decrypting under ring if needed.
func (e *Entry) plaintext(ring *cryptox.Keyring) (string, error) {
	switch {
	case e.Secret.IsEncrypted():
		if ring == nil {
			return "", ErrLocked
		}
		b, err := ring.Decrypt(e.Secret.Encrypted, e.aad())
		if err != nil {
			return "", fmt.Errorf("entry %s: %w", e.Hash, err)
		}
		defer common.WipeByteArray(b)
		return string(b), nil
	case e.Secret.IsLegacy():
		return cryptox.DecodeLegacySecret(e.Secret.Legacy)
	case e.Secret.Plain != "":
		return e.Secret.Plain, nil
	default:
		return "", fmt.Errorf("entry %s: %w", e.Hash, base32x.ErrInvalidEncoding)
	}
}

// CurrentCode returns the code valid at now (Unix seconds). Counter-based
// entries return the code for the stored counter without advancing it.
func (e *Entry) CurrentCode(now uint64) (string, error) {
	if !e.IsUnlocked() {
		return "", ErrLocked
	}
	if e.Kind.IsCounterBased() {
		return otp.Generate(e.key, e.Counter, e.Digits, e.Algorithm, e.Kind.Renderer())
	}
	step, err := otp.TimeStep(now, e.Period, 0)
	if err != nil {
		return "", err
	}
	return otp.Generate(e.key, step, e.Digits, e.Algorithm, e.Kind.Renderer())
}

// AdvanceCounter increments the counter of a counter-based entry and returns
// the code for the new value. The caller persists the entry. On error the
// counter is left unchanged.
func (e *Entry) AdvanceCounter() (string, error) {
	if !e.Kind.IsCounterBased() {
		return "", ErrInvalidOperation
	}
	if !e.IsUnlocked() {
		return "", ErrLocked
	}
	code, err := otp.Generate(e.key, e.Counter+1, e.Digits, e.Algorithm, e.Kind.Renderer())
	if err != nil {
		return "", err
	}
	e.Counter++
	return code, nil
}

// SecondsRemaining is the lifetime left of the current code; zero for
// counter-based entries.
func (e *Entry) SecondsRemaining(now uint64) uint32 {
	if e.Kind.IsCounterBased() {
		return 0
	}
	return otp.SecondsRemaining(now, e.Period)
}

// Reencrypt moves the secret from the old protection to the new one. A nil
// old treats the stored secret as plaintext (or legacy); a nil next stores
// it as plaintext. Either both steps succeed or the entry is untouched.
func (e *Entry) Reencrypt(old, next *cryptox.Keyring) error {
	plain, err := e.plaintext(old)
	if err != nil {
		return err
	}
	key, err := base32x.Decode(plain)
	if err != nil {
		return err
	}

	secret := StoredSecret{Plain: plain}
	if next != nil {
		enc, err := next.Encrypt([]byte(plain), e.aad())
		if err != nil {
			common.WipeByteArray(key)
			return err
		}
		secret = StoredSecret{Encrypted: enc}
	}

	e.Lock()
	e.Secret = secret
	e.key = key
	return nil
}

// Clone returns an independent copy. Locking or re-encrypting one does not
// affect the other.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.key != nil {
		c.key = append([]byte(nil), e.key...)
	}
	return &c
}

func (e *Entry) TogglePin() {
	e.Pinned = !e.Pinned
}

// EntryUpdate carries the user-editable fields; nil means unchanged.
type EntryUpdate struct {
	Issuer  *string
	Account *string
	Period  *uint32
	Digits  *int
}

// Update applies u after validating the result as a whole.
func (e *Entry) Update(u EntryUpdate) error {
	next := *e
	if u.Issuer != nil {
		next.Issuer = strings.TrimSpace(*u.Issuer)
	}
	if u.Account != nil {
		next.Account = strings.TrimSpace(*u.Account)
	}
	if u.Period != nil {
		next.Period = *u.Period
	}
	if u.Digits != nil {
		if e.Kind == KindSteam && *u.Digits != otp.SteamLength {
			return fmt.Errorf("%w: steam codes are %d characters", otp.ErrInvalidParameter, otp.SteamLength)
		}
		next.Digits = *u.Digits
	}
	if err := next.validate(); err != nil {
		return err
	}

	e.Issuer, e.Account, e.Period, e.Digits = next.Issuer, next.Account, next.Period, next.Digits
	return nil
}

// Descriptor exports the entry as an otpauth descriptor for QR codes and
// URIs. Steam, Battle.net and hex kinds map onto the nearest standard type.
func (e *Entry) Descriptor() (*otpauth.Descriptor, error) {
	if !e.IsUnlocked() {
		return nil, ErrLocked
	}
	secret, err := base32x.Normalize(base32x.Encode(e.key))
	if err != nil {
		return nil, err
	}
	typ := otpauth.TypeTOTP
	if e.Kind.IsCounterBased() {
		typ = otpauth.TypeHOTP
	}
	return &otpauth.Descriptor{
		Type:      typ,
		Issuer:    e.Issuer,
		Account:   e.Account,
		Secret:    secret,
		Period:    e.Period,
		Digits:    e.Digits,
		Algorithm: e.Algorithm,
		Counter:   e.Counter,
	}, nil
}

// Label is the display name: "Issuer (account)", or whichever is set.
func (e *Entry) Label() string {
	switch {
	case e.Issuer != "" && e.Account != "":
		return e.Issuer + " (" + e.Account + ")"
	case e.Issuer != "":
		return e.Issuer
	default:
		return e.Account
	}
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s %s [%s]", e.Hash, e.Label(), e.Kind)
}

func (e *Entry) GoString() string {
	return fmt.Sprintf("models.Entry{Hash:%q, Issuer:%q, Account:%q, Kind:%s, Secret:<redacted>}",
		e.Hash, e.Issuer, e.Account, e.Kind)
}

func (e *Entry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("hash", e.Hash),
		slog.String("issuer", e.Issuer),
		slog.String("account", e.Account),
		slog.String("kind", e.Kind.String()),
	)
}
