package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
)

// Backup is the export file. Accounts keep their stored form, so a backup
// of a protected vault carries the salt, KDF parameters and verifier needed
// to open it elsewhere.
type Backup struct {
	Version   string             `json:"version"`
	Timestamp int64              `json:"timestamp"`
	KDF       *cryptox.KDFParams `json:"kdf,omitempty"`
	Salt      []byte             `json:"salt,omitempty"`
	Verifier  []byte             `json:"verifier,omitempty"`
	Accounts  []*models.Entry    `json:"accounts"`
}

// Export writes the whole vault as indented JSON. Timestamp is in Unix
// milliseconds.
func (s *VaultService) Export(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	b := Backup{
		Version:   common.BackupVersion,
		Timestamp: s.now().UnixMilli(),
		Accounts:  s.entries,
	}
	if s.protected {
		params, err := readKeyParams(ctx, s.storage.Metadata())
		if err != nil {
			return err
		}
		if len(params.salt) > 0 {
			b.Salt = params.salt
			b.Verifier = params.verifier
			b.KDF = &params.kdf
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Import merges a backup into the vault. Accounts whose hash is already
// present are skipped. Secrets are re-stored under the current protection;
// pass opens an encrypted backup. It returns how many accounts were added.
func (s *VaultService) Import(ctx context.Context, r io.Reader, pass []byte) (int, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrUnsupportedBackup, err)
	}
	if b.Version != common.BackupVersion || b.Accounts == nil {
		return 0, common.ErrUnsupportedBackup
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	if err := s.requireUnlocked(); err != nil {
		return 0, err
	}

	from, err := backupKeyring(&b, pass)
	if err != nil {
		return 0, err
	}
	defer from.Wipe()

	seen := make(map[string]bool, len(s.entries))
	for _, e := range s.entries {
		seen[e.Hash] = true
	}

	next := s.cloneEntries()
	n := 0
	for _, a := range b.Accounts {
		if a == nil || a.Hash == "" {
			s.log.Warn(ctx, "skipping backup account without hash")
			continue
		}
		if seen[a.Hash] {
			continue
		}
		if err := a.Reencrypt(from, s.ring); err != nil {
			wipeEntries(next)
			return 0, fmt.Errorf("account %s: %w", a.Hash, err)
		}
		seen[a.Hash] = true
		next = append(next, a)
		n++
	}

	if n == 0 {
		wipeEntries(next)
		return 0, nil
	}
	if err := s.commit(ctx, next, nil); err != nil {
		return 0, err
	}
	s.log.Info(ctx, "backup imported", "count", n)
	return n, nil
}

// backupKeyring opens the key of an encrypted backup. Plain backups need
// none and get a nil keyring.
func backupKeyring(b *Backup, pass []byte) (*cryptox.Keyring, error) {
	if len(b.Salt) == 0 {
		return nil, nil
	}
	if len(pass) == 0 {
		return nil, common.ErrPassphraseRequired
	}

	var kdf cryptox.KDFParams
	if b.KDF != nil {
		kdf = *b.KDF
	}
	master := deriveKey(pass, b.Salt, kdf)
	defer common.WipeByteArray(master)

	if len(b.Verifier) > 0 && !cryptox.CheckVerifier(master, b.Verifier) {
		return nil, common.ErrorUnauthorized
	}
	return cryptox.NewKeyring(master)
}
