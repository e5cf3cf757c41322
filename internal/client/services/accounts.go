package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
	"github.com/dmitrijs2005/otpkeeper/internal/otpauth"
	skipqrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length used when QRCode gets size <= 0.
const DefaultQRSize = 256

// Summary is the public view of an entry. It never carries the secret.
type Summary struct {
	Hash      string
	Issuer    string
	Account   string
	Label     string
	Kind      models.Kind
	Algorithm otp.Algorithm
	Digits    int
	Period    uint32
	Counter   uint64
	Pinned    bool
}

func summarize(e *models.Entry) Summary {
	return Summary{
		Hash:      e.Hash,
		Issuer:    e.Issuer,
		Account:   e.Account,
		Label:     e.Label(),
		Kind:      e.Kind,
		Algorithm: e.Algorithm,
		Digits:    e.Digits,
		Period:    e.Period,
		Counter:   e.Counter,
		Pinned:    e.Pinned,
	}
}

// Code is one line of the codes view. Err is set instead of Code when the
// entry could not produce one.
type Code struct {
	Summary
	Code      string
	Remaining uint32
	Err       error
}

// ordered returns the live entries with pinned ones first, otherwise in
// insertion order.
func (s *VaultService) ordered() []*models.Entry {
	list := slices.Clone(s.entries)
	slices.SortStableFunc(list, func(a, b *models.Entry) int {
		return -cmp.Compare(btoi(a.Pinned), btoi(b.Pinned))
	})
	return list
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// find returns the index of hash in list.
func find(list []*models.Entry, hash string) (int, error) {
	i := slices.IndexFunc(list, func(e *models.Entry) bool { return e.Hash == hash })
	if i < 0 {
		return -1, fmt.Errorf("entry %s: %w", hash, common.ErrorNotFound)
	}
	return i, nil
}

// Add creates an entry, encrypting its secret when the vault is protected.
func (s *VaultService) Add(ctx context.Context, p models.Params) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return Summary{}, err
	}
	if err := s.requireUnlocked(); err != nil {
		return Summary{}, err
	}

	e, err := models.New(p, s.ring)
	if err != nil {
		return Summary{}, err
	}
	next := append(s.cloneEntries(), e)
	if err := s.commit(ctx, next, nil); err != nil {
		return Summary{}, err
	}

	s.log.Info(ctx, "entry added", "entry", e)
	return summarize(e), nil
}

// AddURI parses an otpauth:// URI and adds the entry it describes.
func (s *VaultService) AddURI(ctx context.Context, uri string) (Summary, error) {
	d, err := otpauth.Parse(uri)
	if err != nil {
		return Summary{}, err
	}
	return s.Add(ctx, models.ParamsFromDescriptor(*d))
}

// List works on a locked vault too; it needs no secrets.
func (s *VaultService) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	list := s.ordered()
	out := make([]Summary, 0, len(list))
	for _, e := range list {
		out = append(out, summarize(e))
	}
	return out, nil
}

// Codes computes the current code of every entry at now. Counter-based
// entries show the code for their stored counter.
func (s *VaultService) Codes(ctx context.Context, now time.Time) ([]Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	ts := uint64(max(now.Unix(), 0))
	list := s.ordered()
	out := make([]Code, 0, len(list))
	for _, e := range list {
		c := Code{Summary: summarize(e), Remaining: e.SecondsRemaining(ts)}
		c.Code, c.Err = e.CurrentCode(ts)
		out = append(out, c)
	}
	return out, nil
}

// Next advances a counter-based entry and returns the new code. The new
// counter is persisted before the code is returned.
func (s *VaultService) Next(ctx context.Context, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	if err := s.requireUnlocked(); err != nil {
		return "", err
	}

	next := s.cloneEntries()
	i, err := find(next, hash)
	if err != nil {
		wipeEntries(next)
		return "", err
	}
	code, err := next[i].AdvanceCounter()
	if err != nil {
		wipeEntries(next)
		return "", err
	}
	if err := s.commit(ctx, next, nil); err != nil {
		return "", err
	}

	s.log.Debug(ctx, "counter advanced", "entry", next[i], "counter", next[i].Counter)
	return code, nil
}

// TogglePin flips the pinned flag and returns the new value.
func (s *VaultService) TogglePin(ctx context.Context, hash string) (bool, error) {
	var pinned bool
	err := s.mutate(ctx, hash, func(e *models.Entry) error {
		e.TogglePin()
		pinned = e.Pinned
		return nil
	})
	return pinned, err
}

// Update edits issuer, account, period or digits.
func (s *VaultService) Update(ctx context.Context, hash string, u models.EntryUpdate) error {
	return s.mutate(ctx, hash, func(e *models.Entry) error {
		return e.Update(u)
	})
}

// mutate applies fn to a copy of one entry and commits the result.
func (s *VaultService) mutate(ctx context.Context, hash string, fn func(e *models.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := s.cloneEntries()
	i, err := find(next, hash)
	if err == nil {
		err = fn(next[i])
	}
	if err != nil {
		wipeEntries(next)
		return err
	}
	return s.commit(ctx, next, nil)
}

func (s *VaultService) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := s.cloneEntries()
	i, err := find(next, hash)
	if err != nil {
		wipeEntries(next)
		return err
	}
	removed := next[i]
	next = slices.Delete(next, i, i+1)
	removed.Lock()

	if err := s.commit(ctx, next, nil); err != nil {
		return err
	}
	s.log.Info(ctx, "entry deleted", "hash", hash)
	return nil
}

// URI exports an entry as an otpauth:// URI. The URI contains the secret.
func (s *VaultService) URI(ctx context.Context, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	if err := s.requireUnlocked(); err != nil {
		return "", err
	}

	i, err := find(s.entries, hash)
	if err != nil {
		return "", err
	}
	d, err := s.entries[i].Descriptor()
	if err != nil {
		return "", err
	}
	return otpauth.Format(*d), nil
}

// QRCode renders the entry's otpauth URI as a PNG.
func (s *VaultService) QRCode(ctx context.Context, hash string, size int) ([]byte, error) {
	uri, err := s.URI(ctx, hash)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := skipqrcode.Encode(uri, skipqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
