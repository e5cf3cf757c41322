package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
)

// record is the persisted shape of an Entry. secret holds either the
// Base32 string or the {ciphertext, nonce, salt} object. Older vaults
// flagged their Base64-wrapped secrets with encrypted=true.
type record struct {
	Hash      string          `json:"hash"`
	Issuer    string          `json:"issuer"`
	Account   string          `json:"account"`
	Type      Kind            `json:"type"`
	Algorithm otp.Algorithm   `json:"algorithm"`
	Period    uint32          `json:"period"`
	Digits    int             `json:"digits"`
	Counter   uint64          `json:"counter"`
	Pinned    bool            `json:"pinned"`
	Secret    json.RawMessage `json:"secret"`
	Encrypted bool            `json:"encrypted,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	r := record{
		Hash:      e.Hash,
		Issuer:    e.Issuer,
		Account:   e.Account,
		Type:      e.Kind,
		Algorithm: e.Algorithm,
		Period:    e.Period,
		Digits:    e.Digits,
		Counter:   e.Counter,
		Pinned:    e.Pinned,
	}

	var (
		secret []byte
		err    error
	)
	switch {
	case e.Secret.IsEncrypted():
		secret, err = json.Marshal(e.Secret.Encrypted)
	case e.Secret.IsLegacy():
		secret, err = json.Marshal(e.Secret.Legacy)
		r.Encrypted = true
	default:
		secret, err = json.Marshal(e.Secret.Plain)
	}
	if err != nil {
		return nil, err
	}
	r.Secret = secret

	return json.Marshal(r)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}

	*e = Entry{
		Hash:      r.Hash,
		Issuer:    r.Issuer,
		Account:   r.Account,
		Kind:      r.Type,
		Algorithm: r.Algorithm,
		Period:    r.Period,
		Digits:    r.Digits,
		Counter:   r.Counter,
		Pinned:    r.Pinned,
	}

	raw := bytes.TrimSpace(r.Secret)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return fmt.Errorf("entry %s: missing secret", r.Hash)
	case raw[0] == '{':
		var enc cryptox.EncryptedSecret
		if err := json.Unmarshal(raw, &enc); err != nil {
			return fmt.Errorf("entry %s: %w", r.Hash, err)
		}
		e.Secret.Encrypted = &enc
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("entry %s: %w", r.Hash, err)
		}
		if r.Encrypted {
			e.Secret.Legacy = s
		} else {
			e.Secret.Plain = s
		}
	}

	e.applyDefaults()
	return e.validate()
}
