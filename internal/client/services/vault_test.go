package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/entries"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/otpkeeper/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

// Base32 of the RFC 4226 secret "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

var testKDF = cryptox.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func newService(t *testing.T, st Storage) *VaultService {
	t.Helper()
	s := NewVaultService(st, testKDF, nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func addTOTP(t *testing.T, s *VaultService, issuer string) Summary {
	t.Helper()
	sum, err := s.Add(context.Background(), models.Params{Issuer: issuer, Account: "alice", Secret: rfcSecret})
	require.NoError(t, err)
	return sum
}

func codeOf(t *testing.T, s *VaultService, hash string, now time.Time) string {
	t.Helper()
	codes, err := s.Codes(context.Background(), now)
	require.NoError(t, err)
	for _, c := range codes {
		if c.Hash == hash {
			require.NoError(t, c.Err)
			return c.Code
		}
	}
	t.Fatalf("no code for %s", hash)
	return ""
}

func rawEntries(t *testing.T, st Storage) string {
	t.Helper()
	raw, err := st.Metadata().Get(context.Background(), entries.Key)
	require.NoError(t, err)
	return string(raw)
}

// failingStorage fails every transaction while fail is set.
type failingStorage struct {
	Storage
	fail bool
}

var errStorage = errors.New("disk full")

func (f *failingStorage) InTx(ctx context.Context, fn func(ctx context.Context, md metadata.Repository) error) error {
	if f.fail {
		return errStorage
	}
	return f.Storage.InTx(ctx, fn)
}

// ---- unprotected vault ----

func TestVault_AddAndCodes(t *testing.T) {
	s := newService(t, NewMemoryStorage())

	sum := addTOTP(t, s, "Example")
	assert.Equal(t, "Example (alice)", sum.Label)
	assert.Equal(t, models.KindTOTP, sum.Kind)
	assert.False(t, s.IsLocked())

	// RFC 6238 SHA1 at T=59 is 94287082
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))
	assert.Equal(t, "081804", codeOf(t, s, sum.Hash, time.Unix(1111111109, 0)))

	codes, err := s.Codes(context.Background(), time.Unix(59, 0))
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, uint32(1), codes[0].Remaining)
}

func TestVault_AddURI(t *testing.T) {
	s := newService(t, NewMemoryStorage())

	sum, err := s.AddURI(context.Background(), "otpauth://hotp/ACME:bob?secret="+rfcSecret+"&counter=3")
	require.NoError(t, err)
	assert.Equal(t, "ACME", sum.Issuer)
	assert.Equal(t, "bob", sum.Account)
	assert.Equal(t, models.KindHOTP, sum.Kind)
	assert.Equal(t, uint64(3), sum.Counter)

	_, err = s.AddURI(context.Background(), "https://example.com")
	require.Error(t, err)
}

func TestVault_NextPersistsCounter(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)

	sum, err := s.Add(context.Background(), models.Params{Kind: models.KindHOTP, Secret: rfcSecret})
	require.NoError(t, err)

	assert.Equal(t, "755224", codeOf(t, s, sum.Hash, time.Now()))

	code, err := s.Next(context.Background(), sum.Hash)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Now()))

	reloaded := newService(t, st)
	list, err := reloaded.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(1), list[0].Counter)
}

func TestVault_NextErrors(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	sum := addTOTP(t, s, "Example")

	_, err := s.Next(context.Background(), sum.Hash)
	require.ErrorIs(t, err, models.ErrInvalidOperation)

	_, err = s.Next(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVault_FailedCommitKeepsState(t *testing.T) {
	st := &failingStorage{Storage: NewMemoryStorage()}
	s := newService(t, st)

	sum, err := s.Add(context.Background(), models.Params{Kind: models.KindHOTP, Secret: rfcSecret})
	require.NoError(t, err)

	st.fail = true
	_, err = s.Next(context.Background(), sum.Hash)
	require.ErrorIs(t, err, errStorage)

	_, err = s.Add(context.Background(), models.Params{Secret: rfcSecret})
	require.ErrorIs(t, err, errStorage)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(0), list[0].Counter)
	assert.Equal(t, "755224", codeOf(t, s, sum.Hash, time.Now()))
}

func TestVault_ListPinnedFirst(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	a := addTOTP(t, s, "A")
	b := addTOTP(t, s, "B")
	c := addTOTP(t, s, "C")

	pinned, err := s.TogglePin(context.Background(), c.Hash)
	require.NoError(t, err)
	assert.True(t, pinned)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	got := []string{list[0].Hash, list[1].Hash, list[2].Hash}
	assert.Equal(t, []string{c.Hash, a.Hash, b.Hash}, got)

	pinned, err = s.TogglePin(context.Background(), c.Hash)
	require.NoError(t, err)
	assert.False(t, pinned)

	_, err = s.TogglePin(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVault_UpdateAndDelete(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	sum := addTOTP(t, s, "Old")

	issuer := "New"
	digits := 8
	require.NoError(t, s.Update(context.Background(), sum.Hash, models.EntryUpdate{Issuer: &issuer, Digits: &digits}))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New", list[0].Issuer)
	assert.Equal(t, 8, list[0].Digits)
	assert.Equal(t, "94287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))

	bad := 11
	err = s.Update(context.Background(), sum.Hash, models.EntryUpdate{Digits: &bad})
	require.Error(t, err)

	require.NoError(t, s.Delete(context.Background(), sum.Hash))
	require.ErrorIs(t, s.Delete(context.Background(), sum.Hash), common.ErrorNotFound)

	list, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVault_URIAndQRCode(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	sum := addTOTP(t, s, "Example")

	uri, err := s.URI(context.Background(), sum.Hash)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret="+rfcSecret)

	png, err := s.QRCode(context.Background(), sum.Hash, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = s.QRCode(context.Background(), "missing", 128)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

// ---- passphrase lifecycle ----

func TestVault_SetupPassphrase(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")

	require.ErrorIs(t, s.SetupPassphrase(context.Background(), nil), common.ErrPassphraseRequired)
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))
	require.ErrorIs(t, s.SetupPassphrase(context.Background(), []byte("pw")), common.ErrPassphraseAlreadySet)

	has, err := s.HasPassphrase(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
	assert.False(t, s.IsLocked())
	assert.NotContains(t, rawEntries(t, st), rfcSecret)
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))

	// new entries are encrypted as well
	addTOTP(t, s, "Second")
	assert.NotContains(t, rawEntries(t, st), rfcSecret)
}

func TestVault_LockUnlock(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))

	s.Lock()
	assert.True(t, s.IsLocked())

	_, err := s.Codes(context.Background(), time.Now())
	require.ErrorIs(t, err, common.ErrVaultLocked)
	_, err = s.Add(context.Background(), models.Params{Secret: rfcSecret})
	require.ErrorIs(t, err, common.ErrVaultLocked)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.ErrorIs(t, s.Unlock(context.Background(), []byte("wrong")), common.ErrorUnauthorized)
	assert.True(t, s.IsLocked())

	require.NoError(t, s.Unlock(context.Background(), []byte("pw")))
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))

	// unlocking twice is harmless
	require.NoError(t, s.Unlock(context.Background(), []byte("pw")))
}

func TestVault_UnlockWhileUnlockedChecksPassphrase(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))
	require.False(t, s.IsLocked())

	require.ErrorIs(t, s.Unlock(context.Background(), []byte("wrong")), common.ErrorUnauthorized)
	assert.False(t, s.IsLocked(), "a failed unlock leaves the open vault alone")
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))

	require.NoError(t, s.Unlock(context.Background(), []byte("pw")))
}

func TestVault_ReloadIsLocked(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))

	other := newService(t, st)
	assert.True(t, other.IsLocked())
	require.NoError(t, other.Unlock(context.Background(), []byte("pw")))
	assert.Equal(t, "287082", codeOf(t, other, sum.Hash, time.Unix(59, 0)))
}

func TestVault_UnlockWithoutPassphrase(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	require.ErrorIs(t, s.Unlock(context.Background(), []byte("pw")), common.ErrNoPassphrase)
}

func TestVault_LockDiscardsPendingUnlock(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))
	s.Lock()

	orig := deriveKey
	t.Cleanup(func() { deriveKey = orig })
	release := make(chan struct{})
	deriveKey = func(pass, salt []byte, p cryptox.KDFParams) []byte {
		<-release
		return orig(pass, salt, p)
	}

	ch := s.UnlockAsync(context.Background(), []byte("pw"))
	s.Lock()
	close(release)

	require.ErrorIs(t, <-ch, common.ErrUnlockAborted)
	assert.True(t, s.IsLocked())

	_, open := <-ch
	assert.False(t, open)
}

func TestVault_UnlockCancelledContext(t *testing.T) {
	s := newService(t, NewMemoryStorage())
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))
	s.Lock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Unlock(ctx, []byte("pw"))
	require.ErrorIs(t, err, common.ErrUnlockAborted)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, s.IsLocked())
}

func TestVault_ChangePassphrase(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("old")))
	before := rawEntries(t, st)

	require.ErrorIs(t, s.ChangePassphrase(context.Background(), []byte("nope"), []byte("new")), common.ErrorUnauthorized)
	require.ErrorIs(t, s.ChangePassphrase(context.Background(), []byte("old"), nil), common.ErrPassphraseRequired)
	assert.Equal(t, before, rawEntries(t, st))

	require.NoError(t, s.ChangePassphrase(context.Background(), []byte("old"), []byte("new")))
	assert.NotEqual(t, before, rawEntries(t, st))
	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))

	s.Lock()
	require.ErrorIs(t, s.Unlock(context.Background(), []byte("old")), common.ErrorUnauthorized)
	require.NoError(t, s.Unlock(context.Background(), []byte("new")))
}

func TestVault_ChangePassphraseFailureIsAtomic(t *testing.T) {
	st := &failingStorage{Storage: NewMemoryStorage()}
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("old")))

	st.fail = true
	require.ErrorIs(t, s.ChangePassphrase(context.Background(), []byte("old"), []byte("new")), errStorage)
	st.fail = false

	assert.Equal(t, "287082", codeOf(t, s, sum.Hash, time.Unix(59, 0)))
	s.Lock()
	require.NoError(t, s.Unlock(context.Background(), []byte("old")))
}

func TestVault_RemovePassphrase(t *testing.T) {
	st := NewMemoryStorage()
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(context.Background(), []byte("pw")))

	require.ErrorIs(t, s.RemovePassphrase(context.Background(), []byte("bad")), common.ErrorUnauthorized)
	require.NoError(t, s.RemovePassphrase(context.Background(), []byte("pw")))

	has, err := s.HasPassphrase(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
	assert.Contains(t, rawEntries(t, st), rfcSecret)

	salt, err := st.Metadata().Get(context.Background(), keySalt)
	require.NoError(t, err)
	assert.Nil(t, salt)

	reloaded := newService(t, st)
	assert.False(t, reloaded.IsLocked())
	assert.Equal(t, "287082", codeOf(t, reloaded, sum.Hash, time.Unix(59, 0)))

	require.ErrorIs(t, s.RemovePassphrase(context.Background(), []byte("pw")), common.ErrNoPassphrase)
}

// ---- legacy data ----

// rfcSecret wrapped in Base64, as the old format stored it.
const legacyEntries = `[{"hash":"h1","issuer":"Example","account":"alice","type":"totp",` +
	`"secret":"R0VaREdOQlZHWTNUUU9KUUdFWkRHTkJWR1kzVFFPSlE=","encrypted":true}]`

func TestVault_LegacyEntriesMigratedOnLoad(t *testing.T) {
	st := NewMemoryStorage()
	require.NoError(t, st.Metadata().Set(context.Background(), entries.Key, []byte(legacyEntries)))

	s := newService(t, st)
	assert.False(t, s.IsLocked())
	assert.Equal(t, "287082", codeOf(t, s, "h1", time.Unix(59, 0)))

	raw := rawEntries(t, st)
	assert.Contains(t, raw, rfcSecret)
	assert.NotContains(t, raw, `"encrypted"`)

	n, err := s.MigrateLegacy(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVault_LegacyPasswordUpgrade(t *testing.T) {
	st := NewMemoryStorage()
	md := st.Metadata()
	require.NoError(t, md.Set(context.Background(), entries.Key, []byte(legacyEntries)))
	require.NoError(t, md.Set(context.Background(), keyLegacyHash, []byte(cryptox.LegacyPasswordHash("hunter2"))))

	s := newService(t, st)
	assert.True(t, s.IsLocked())

	require.ErrorIs(t, s.Unlock(context.Background(), []byte("hunter"+"3")), common.ErrorUnauthorized)
	require.NoError(t, s.Unlock(context.Background(), []byte("hunter2")))
	assert.Equal(t, "287082", codeOf(t, s, "h1", time.Unix(59, 0)))

	legacy, err := md.Get(context.Background(), keyLegacyHash)
	require.NoError(t, err)
	assert.Nil(t, legacy)
	salt, err := md.Get(context.Background(), keySalt)
	require.NoError(t, err)
	assert.Len(t, salt, cryptox.SaltSize)
	assert.NotContains(t, rawEntries(t, st), "R0VaREdO")

	reloaded := newService(t, st)
	require.NoError(t, reloaded.Unlock(context.Background(), []byte("hunter2")))
	assert.Equal(t, "287082", codeOf(t, reloaded, "h1", time.Unix(59, 0)))
}

// ---- SQL-backed storage ----

func TestVault_SQLiteStorage(t *testing.T) {
	ctx := context.Background()
	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, "file:vaultsvc?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := NewSQLStorage(db, rm)
	s := newService(t, st)
	sum := addTOTP(t, s, "Example")
	require.NoError(t, s.SetupPassphrase(ctx, []byte("pw")))

	keys, err := st.Metadata().List(ctx)
	require.NoError(t, err)
	for _, k := range []string{entries.Key, keySalt, keyKDF, keyVerifier} {
		assert.Contains(t, keys, k)
	}

	other := newService(t, st)
	require.NoError(t, other.Unlock(ctx, []byte("pw")))
	assert.Equal(t, "287082", codeOf(t, other, sum.Hash, time.Unix(59, 0)))
}
