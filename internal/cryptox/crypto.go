package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/text/unicode/norm"
)

const (
	KeySize   = 32
	NonceSize = 12
	SaltSize  = 16
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidKey           = errors.New("invalid key")
)

// KDFParams are the Argon2id cost parameters. They are stored next to the
// salt so a vault keeps opening after the defaults change.
type KDFParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

var DefaultKDFParams = KDFParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}

func (p KDFParams) orDefault() KDFParams {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return DefaultKDFParams
	}
	return p
}

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// CheckVerifier reports whether masterKey matches a stored verifier.
// The comparison runs in constant time.
func CheckVerifier(masterKey, verifier []byte) bool {
	return subtle.ConstantTimeCompare(MakeVerifier(masterKey), verifier) == 1
}

// DeriveKey stretches a passphrase into a 32-byte master key with Argon2id.
// The passphrase is NFKC-normalized first, so visually identical input
// typed on different keyboards yields the same key.
func DeriveKey(passphrase, salt []byte, p KDFParams) []byte {
	p = p.orDefault()
	return argon2.IDKey(norm.NFKC.Bytes(passphrase), salt, p.Time, p.MemoryKiB, p.Threads, KeySize)
}

// DeriveRecordKey expands the master key into the subkey for one stored
// record using HKDF-SHA256 with the record salt.
func DeriveRecordKey(master, recordSalt []byte) ([]byte, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKey
	}
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, master, recordSalt, []byte("otpkeeper record v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext using AES-GCM with a fresh random 12-byte nonce.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). aad is
// authenticated but not encrypted; the same aad must be passed to Open.
//
// Returns:
//   - ciphertext: the encrypted data with the GCM tag appended.
//   - nonce: the randomly generated nonce.
//   - err: non-nil if the key is unusable.
func Seal(plaintext, key, aad []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(NonceSize)
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, aad)

	return ciphertext, nonce, nil
}

// Open reverses Seal. Any mismatch of key, nonce, aad or tag yields
// ErrAuthenticationFailed and never partial plaintext.
func Open(ciphertext, nonce, key, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return cipher.NewGCM(block)
}

// DecodeLegacySecret reverses the reversible Base64 wrapping older vaults
// stored in place of encryption. It is only used to migrate such records.
func DecodeLegacySecret(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("legacy secret: %w", err)
	}
	return string(b), nil
}

// LegacyPasswordHash is the Base64 "hash" older vaults kept for the
// passphrase check.
func LegacyPasswordHash(passphrase string) string {
	return base64.StdEncoding.EncodeToString([]byte(passphrase))
}
