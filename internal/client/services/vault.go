// Package services contains the application services behind the CLI and
// the agent. VaultService owns the list of OTP accounts: it loads them from
// the metadata store, keeps the unlocked keyring in memory and persists
// every change atomically.
package services

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/entries"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/logging"
)

// Metadata keys next to the entries blob.
const (
	keySalt       = "salt"
	keyKDF        = "kdf"
	keyVerifier   = "verifier"
	keyLegacyHash = "passwordHash"
)

// deriveKey is a seam for tests.
var deriveKey = cryptox.DeriveKey

// VaultService is safe for concurrent use.
type VaultService struct {
	storage Storage
	kdf     cryptox.KDFParams
	log     logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	loaded    bool
	protected bool
	ring      *cryptox.Keyring
	entries   []*models.Entry
	// epoch changes on Lock so that unlocks started earlier are discarded.
	epoch uint64
}

// NewVaultService builds a service over storage. kdf is used whenever a
// new passphrase is set.
func NewVaultService(storage Storage, kdf cryptox.KDFParams, log logging.Logger) *VaultService {
	if log == nil {
		log = logging.Discard()
	}
	if kdf == (cryptox.KDFParams{}) {
		kdf = cryptox.DefaultKDFParams
	}
	return &VaultService{storage: storage, kdf: kdf, log: log, now: time.Now}
}

// Load (re)reads the vault. A vault without a passphrase is usable right
// away and has any legacy-wrapped secrets migrated on the way.
func (s *VaultService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *VaultService) load(ctx context.Context) error {
	md := s.storage.Metadata()

	list, err := entries.NewKVStore(md).Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	protected, err := isProtected(ctx, md)
	if err != nil {
		return err
	}

	wipeEntries(s.entries)
	s.ring.Wipe()
	s.ring = nil
	s.entries = list
	s.protected = protected
	s.loaded = true

	s.log.Debug(ctx, "vault loaded", "entries", len(list), "protected", protected)

	if protected {
		return nil
	}
	s.unlockEntries(ctx, nil)
	_, err = s.migrateLegacy(ctx)
	return err
}

func (s *VaultService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.load(ctx)
}

func isProtected(ctx context.Context, md metadata.Repository) (bool, error) {
	salt, err := md.Get(ctx, keySalt)
	if err != nil {
		return false, err
	}
	if len(salt) > 0 {
		return true, nil
	}
	legacy, err := md.Get(ctx, keyLegacyHash)
	if err != nil {
		return false, err
	}
	return len(legacy) > 0, nil
}

// HasPassphrase reports whether secrets are protected by a passphrase.
func (s *VaultService) HasPassphrase(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	return s.protected, nil
}

// IsLocked reports whether codes are unavailable until Unlock.
func (s *VaultService) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLocked()
}

func (s *VaultService) isLocked() bool {
	return !s.loaded || (s.protected && s.ring == nil)
}

func (s *VaultService) requireUnlocked() error {
	if s.isLocked() {
		return common.ErrVaultLocked
	}
	return nil
}

// unlockEntries makes secrets available. An entry that cannot be opened
// stays locked and is reported rather than dropped.
func (s *VaultService) unlockEntries(ctx context.Context, ring *cryptox.Keyring) {
	for _, e := range s.entries {
		if err := e.Unlock(ring); err != nil {
			s.log.Warn(ctx, "entry stays locked", "entry", e, "error", err)
		}
	}
}

type keyParams struct {
	salt       []byte
	verifier   []byte
	kdf        cryptox.KDFParams
	legacyHash []byte
}

func readKeyParams(ctx context.Context, md metadata.Repository) (*keyParams, error) {
	p := &keyParams{}
	var err error

	if p.salt, err = md.Get(ctx, keySalt); err != nil {
		return nil, err
	}
	if p.verifier, err = md.Get(ctx, keyVerifier); err != nil {
		return nil, err
	}
	if p.legacyHash, err = md.Get(ctx, keyLegacyHash); err != nil {
		return nil, err
	}
	raw, err := md.Get(ctx, keyKDF)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.kdf); err != nil {
			return nil, fmt.Errorf("failed to decode kdf params: %w", err)
		}
	}
	return p, nil
}

func writeKeyParams(ctx context.Context, md metadata.Repository, salt []byte, kdf cryptox.KDFParams, verifier []byte) error {
	raw, err := json.Marshal(kdf)
	if err != nil {
		return err
	}
	if err := md.Set(ctx, keySalt, salt); err != nil {
		return err
	}
	if err := md.Set(ctx, keyKDF, raw); err != nil {
		return err
	}
	if err := md.Set(ctx, keyVerifier, verifier); err != nil {
		return err
	}
	return md.Delete(ctx, keyLegacyHash)
}

func deleteKeyParams(ctx context.Context, md metadata.Repository) error {
	for _, k := range []string{keySalt, keyKDF, keyVerifier, keyLegacyHash} {
		if err := md.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// newKeyring derives a master key under a fresh salt.
func (s *VaultService) newKeyring(pass []byte) (ring *cryptox.Keyring, salt, verifier []byte, err error) {
	salt = common.GenerateRandByteArray(cryptox.SaltSize)
	master := deriveKey(pass, salt, s.kdf)
	defer common.WipeByteArray(master)

	ring, err = cryptox.NewKeyring(master)
	if err != nil {
		return nil, nil, nil, err
	}
	return ring, salt, cryptox.MakeVerifier(master), nil
}

// SetupPassphrase protects a vault that has no passphrase yet. Every
// secret is encrypted in the same transaction that stores the salt.
func (s *VaultService) SetupPassphrase(ctx context.Context, pass []byte) error {
	if len(pass) == 0 {
		return common.ErrPassphraseRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if s.protected {
		return common.ErrPassphraseAlreadySet
	}

	ring, salt, verifier, err := s.newKeyring(pass)
	if err != nil {
		return err
	}
	next, err := s.reencryptAll(nil, ring)
	if err != nil {
		ring.Wipe()
		return err
	}
	err = s.commit(ctx, next, func(ctx context.Context, md metadata.Repository) error {
		return writeKeyParams(ctx, md, salt, s.kdf, verifier)
	})
	if err != nil {
		ring.Wipe()
		return err
	}

	s.protected = true
	s.ring = ring
	s.log.Info(ctx, "passphrase set", "entries", len(next))
	return nil
}

// Unlock blocks until UnlockAsync finishes.
func (s *VaultService) Unlock(ctx context.Context, pass []byte) error {
	return <-s.UnlockAsync(ctx, pass)
}

// UnlockAsync derives the key on a separate goroutine and delivers exactly
// one result. If Lock is called or ctx ends before the derivation is done
// the result is discarded and common.ErrUnlockAborted is delivered.
func (s *VaultService) UnlockAsync(ctx context.Context, pass []byte) <-chan error {
	out := make(chan error, 1)

	s.mu.Lock()
	params, epoch, err := s.prepareUnlock(ctx)
	s.mu.Unlock()
	if err != nil {
		out <- err
		close(out)
		return out
	}

	pass = bytes.Clone(pass)
	go func() {
		defer close(out)
		defer common.WipeByteArray(pass)
		out <- s.finishUnlock(ctx, epoch, params, pass)
	}()
	return out
}

// prepareUnlock reads the key parameters. An already unlocked vault still
// goes through verification so Unlock always authenticates the caller.
func (s *VaultService) prepareUnlock(ctx context.Context) (*keyParams, uint64, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, 0, err
	}
	if !s.protected {
		return nil, 0, common.ErrNoPassphrase
	}
	params, err := readKeyParams(ctx, s.storage.Metadata())
	if err != nil {
		return nil, 0, err
	}
	return params, s.epoch, nil
}

func (s *VaultService) finishUnlock(ctx context.Context, epoch uint64, params *keyParams, pass []byte) error {
	upgrade := len(params.salt) == 0
	var (
		master []byte
		salt   = params.salt
		kdf    = params.kdf
	)
	if upgrade {
		// vaults from before key derivation stored a reversible hash
		hash := []byte(cryptox.LegacyPasswordHash(string(pass)))
		if subtle.ConstantTimeCompare(hash, params.legacyHash) != 1 {
			return common.ErrorUnauthorized
		}
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		kdf = s.kdf
		master = deriveKey(pass, salt, kdf)
	} else {
		master = deriveKey(pass, salt, kdf)
		if !cryptox.CheckVerifier(master, params.verifier) {
			common.WipeByteArray(master)
			return common.ErrorUnauthorized
		}
	}
	defer common.WipeByteArray(master)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnlockAborted, err)
	}

	ring, err := cryptox.NewKeyring(master)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || !s.loaded {
		ring.Wipe()
		return common.ErrUnlockAborted
	}
	if s.ring != nil {
		// already unlocked, the passphrase was verified above
		ring.Wipe()
		return nil
	}

	if upgrade {
		next, err := s.reencryptAll(nil, ring)
		if err != nil {
			ring.Wipe()
			return err
		}
		verifier := cryptox.MakeVerifier(master)
		err = s.commit(ctx, next, func(ctx context.Context, md metadata.Repository) error {
			return writeKeyParams(ctx, md, salt, kdf, verifier)
		})
		if err != nil {
			ring.Wipe()
			return err
		}
		s.ring = ring
		s.log.Info(ctx, "legacy vault upgraded", "entries", len(next))
		return nil
	}

	s.ring = ring
	s.unlockEntries(ctx, ring)
	if _, err := s.migrateLegacy(ctx); err != nil {
		return err
	}
	s.log.Info(ctx, "vault unlocked")
	return nil
}

// Lock wipes the keyring and every in-memory secret of a protected vault
// and cancels unlocks still in flight.
func (s *VaultService) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if !s.protected {
		return
	}
	s.ring.Wipe()
	s.ring = nil
	for _, e := range s.entries {
		e.Lock()
	}
}

// verifyPassphrase checks pass against the stored verifier and returns a
// keyring for it. The vault has to be unlocked already.
func (s *VaultService) verifyPassphrase(ctx context.Context, pass []byte) (*cryptox.Keyring, error) {
	if !s.protected {
		return nil, common.ErrNoPassphrase
	}
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	params, err := readKeyParams(ctx, s.storage.Metadata())
	if err != nil {
		return nil, err
	}

	master := deriveKey(pass, params.salt, params.kdf)
	defer common.WipeByteArray(master)
	if !cryptox.CheckVerifier(master, params.verifier) {
		return nil, common.ErrorUnauthorized
	}
	return cryptox.NewKeyring(master)
}

// ChangePassphrase re-encrypts every secret under a key derived from next.
// Nothing is persisted unless every entry succeeds.
func (s *VaultService) ChangePassphrase(ctx context.Context, old, next []byte) error {
	if len(next) == 0 {
		return common.ErrPassphraseRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	oldRing, err := s.verifyPassphrase(ctx, old)
	if err != nil {
		return err
	}
	defer oldRing.Wipe()

	ring, salt, verifier, err := s.newKeyring(next)
	if err != nil {
		return err
	}
	list, err := s.reencryptAll(oldRing, ring)
	if err != nil {
		ring.Wipe()
		return err
	}
	err = s.commit(ctx, list, func(ctx context.Context, md metadata.Repository) error {
		return writeKeyParams(ctx, md, salt, s.kdf, verifier)
	})
	if err != nil {
		ring.Wipe()
		return err
	}

	s.ring.Wipe()
	s.ring = ring
	s.log.Info(ctx, "passphrase changed", "entries", len(list))
	return nil
}

// RemovePassphrase stores every secret in plain form again.
func (s *VaultService) RemovePassphrase(ctx context.Context, pass []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	oldRing, err := s.verifyPassphrase(ctx, pass)
	if err != nil {
		return err
	}
	defer oldRing.Wipe()

	list, err := s.reencryptAll(oldRing, nil)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, list, deleteKeyParams); err != nil {
		return err
	}

	s.ring.Wipe()
	s.ring = nil
	s.protected = false
	s.log.Info(ctx, "passphrase removed", "entries", len(list))
	return nil
}

// MigrateLegacy re-stores secrets that still use the old Base64 wrapping,
// encrypted when the vault has a passphrase. It returns how many entries
// changed.
func (s *VaultService) MigrateLegacy(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return s.migrateLegacy(ctx)
}

func (s *VaultService) migrateLegacy(ctx context.Context) (int, error) {
	n := 0
	for _, e := range s.entries {
		if e.Secret.IsLegacy() {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.requireUnlocked(); err != nil {
		return 0, err
	}

	next := s.cloneEntries()
	for _, e := range next {
		if !e.Secret.IsLegacy() {
			continue
		}
		if err := e.Reencrypt(nil, s.ring); err != nil {
			wipeEntries(next)
			return 0, fmt.Errorf("failed to migrate entry %s: %w", e.Hash, err)
		}
	}
	if err := s.commit(ctx, next, nil); err != nil {
		return 0, err
	}

	s.log.Info(ctx, "legacy secrets migrated", "count", n)
	return n, nil
}

// reencryptAll returns re-encrypted copies of the live entries. The live
// list is not touched.
func (s *VaultService) reencryptAll(old, next *cryptox.Keyring) ([]*models.Entry, error) {
	list := s.cloneEntries()
	for _, e := range list {
		if err := e.Reencrypt(old, next); err != nil {
			wipeEntries(list)
			return nil, fmt.Errorf("failed to re-encrypt entry %s: %w", e.Hash, err)
		}
	}
	return list, nil
}

func (s *VaultService) cloneEntries() []*models.Entry {
	list := make([]*models.Entry, len(s.entries))
	for i, e := range s.entries {
		list[i] = e.Clone()
	}
	return list
}

// commit persists next together with whatever extra writes in one
// transaction and then makes next the live list. next must not share
// entries with the live list. On error the live list stays as it was.
func (s *VaultService) commit(ctx context.Context, next []*models.Entry, extra func(ctx context.Context, md metadata.Repository) error) error {
	err := s.storage.InTx(ctx, func(ctx context.Context, md metadata.Repository) error {
		if err := entries.NewKVStore(md).Set(ctx, next); err != nil {
			return err
		}
		if extra != nil {
			return extra(ctx, md)
		}
		return nil
	})
	if err != nil {
		wipeEntries(next)
		return fmt.Errorf("failed to save vault: %w", err)
	}

	wipeEntries(s.entries)
	s.entries = next
	return nil
}

func wipeEntries(list []*models.Entry) {
	for _, e := range list {
		e.Lock()
	}
}
