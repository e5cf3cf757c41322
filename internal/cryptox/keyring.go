package cryptox

import (
	"sync"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
)

// EncryptedSecret is the stored form of an encrypted OTP secret. All three
// parts are required to decrypt; the salt selects the per-record subkey.
type EncryptedSecret struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Salt       []byte `json:"salt"`
}

func (e *EncryptedSecret) valid() bool {
	return e != nil && len(e.Ciphertext) > 0 && len(e.Nonce) == NonceSize && len(e.Salt) > 0
}

// Keyring holds an unlocked master key. It is safe for concurrent use and
// becomes unusable after Wipe.
type Keyring struct {
	mu     sync.RWMutex
	master []byte
}

// NewKeyring copies master; the caller may wipe its own slice afterwards.
func NewKeyring(master []byte) (*Keyring, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Keyring{master: append([]byte(nil), master...)}, nil
}

// Verifier returns the unlock verifier for the held key.
func (k *Keyring) Verifier() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.master == nil {
		return nil, ErrInvalidKey
	}
	return MakeVerifier(k.master), nil
}

// Encrypt seals plaintext under a fresh record salt and nonce.
func (k *Keyring) Encrypt(plaintext, aad []byte) (*EncryptedSecret, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.master == nil {
		return nil, ErrInvalidKey
	}

	salt := common.GenerateRandByteArray(SaltSize)
	key, err := DeriveRecordKey(k.master, salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	ct, nonce, err := Seal(plaintext, key, aad)
	if err != nil {
		return nil, err
	}

	return &EncryptedSecret{Ciphertext: ct, Nonce: nonce, Salt: salt}, nil
}

// Decrypt opens a stored secret. A wrong key, a tampered triple or a
// mismatched aad all report ErrAuthenticationFailed.
func (k *Keyring) Decrypt(e *EncryptedSecret, aad []byte) ([]byte, error) {
	if !e.valid() {
		return nil, ErrAuthenticationFailed
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.master == nil {
		return nil, ErrInvalidKey
	}

	key, err := DeriveRecordKey(k.master, e.Salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	return Open(e.Ciphertext, e.Nonce, key, aad)
}

// Wipe zeroes the master key. Safe to call more than once and on nil.
func (k *Keyring) Wipe() {
	if k == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	common.WipeByteArray(k.master)
	k.master = nil
}
