package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dmitrijs2005/otpkeeper/internal/base32x"
	"github.com/dmitrijs2005/otpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
	"github.com/dmitrijs2005/otpkeeper/internal/otpauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Base32 of the RFC 4226 secret "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func testRing(t *testing.T, pass string) *cryptox.Keyring {
	t.Helper()
	key := cryptox.DeriveKey([]byte(pass), []byte("0123456789abcdef"), cryptox.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1})
	ring, err := cryptox.NewKeyring(key)
	require.NoError(t, err)
	return ring
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(Params{Issuer: " Example ", Account: "alice", Secret: "jbsw y3dp ehpk 3pxp"}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, e.Hash)
	assert.Equal(t, "Example", e.Issuer)
	assert.Equal(t, KindTOTP, e.Kind)
	assert.Equal(t, uint32(30), e.Period)
	assert.Equal(t, 6, e.Digits)
	assert.Equal(t, otp.SHA1, e.Algorithm)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", e.Secret.Plain)
	assert.True(t, e.IsUnlocked())
}

func TestNew_KindDefaults(t *testing.T) {
	steam, err := New(Params{Kind: KindSteam, Secret: rfcSecret, Digits: 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, otp.SteamLength, steam.Digits)

	battle, err := New(Params{Kind: KindBattle, Secret: rfcSecret}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, battle.Digits)
}

func TestNew_UniqueHash(t *testing.T) {
	a, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)
	b, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want error
	}{
		{"bad secret", Params{Secret: "not base32!"}, base32x.ErrInvalidEncoding},
		{"empty secret", Params{}, base32x.ErrInvalidEncoding},
		{"few digits", Params{Secret: rfcSecret, Digits: 3}, otp.ErrInvalidParameter},
		{"many digits", Params{Secret: rfcSecret, Digits: 11}, otp.ErrInvalidParameter},
		{"unknown kind", Params{Secret: rfcSecret, Kind: Kind(9)}, otp.ErrInvalidParameter},
		{"account splits as label", Params{Secret: rfcSecret, Issuer: "X", Account: "a:b"}, otpauth.ErrInvalidLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.p, nil)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, e)
		})
	}
}

func TestNew_EncryptsWithKeyring(t *testing.T) {
	ring := testRing(t, "pw")
	e, err := New(Params{Secret: rfcSecret}, ring)
	require.NoError(t, err)

	require.True(t, e.Secret.IsEncrypted())
	assert.Empty(t, e.Secret.Plain)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(b), rfcSecret)
}

func TestCurrentCode_TOTP(t *testing.T) {
	e, err := New(Params{Secret: rfcSecret, Digits: 8}, nil)
	require.NoError(t, err)

	code, err := e.CurrentCode(59)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)

	// same step, same code
	again, err := e.CurrentCode(45)
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestCurrentCode_HOTPDoesNotAdvance(t *testing.T) {
	e, err := New(Params{Kind: KindHOTP, Secret: rfcSecret, Counter: 3}, nil)
	require.NoError(t, err)

	for range 2 {
		code, err := e.CurrentCode(1_700_000_000)
		require.NoError(t, err)
		assert.Equal(t, "969429", code)
	}
	assert.Equal(t, uint64(3), e.Counter)
}

func TestCurrentCode_Renderers(t *testing.T) {
	steam, err := New(Params{Kind: KindSteam, Secret: rfcSecret}, nil)
	require.NoError(t, err)
	code, err := steam.CurrentCode(0)
	require.NoError(t, err)
	assert.Equal(t, "GG5F5", code)

	hex, err := New(Params{Kind: KindHOTPHex, Secret: rfcSecret, Digits: 8}, nil)
	require.NoError(t, err)
	code, err = hex.CurrentCode(0)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%08x", 1284755224), code)
}

func TestCurrentCode_Locked(t *testing.T) {
	e, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)
	e.Lock()

	_, err = e.CurrentCode(59)
	require.ErrorIs(t, err, ErrLocked)
}

func TestAdvanceCounter(t *testing.T) {
	e, err := New(Params{Kind: KindHOTP, Secret: rfcSecret, Counter: 4}, nil)
	require.NoError(t, err)

	code, err := e.AdvanceCounter()
	require.NoError(t, err)

	want, err := otp.HOTP([]byte("12345678901234567890"), 5, 6, otp.SHA1)
	require.NoError(t, err)
	assert.Equal(t, want, code)
	assert.Equal(t, uint64(5), e.Counter)

	current, err := e.CurrentCode(0)
	require.NoError(t, err)
	assert.Equal(t, code, current)
}

func TestAdvanceCounter_TOTPIsInvalid(t *testing.T) {
	e, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)

	_, err = e.AdvanceCounter()
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Zero(t, e.Counter)
}

func TestAdvanceCounter_LockedKeepsCounter(t *testing.T) {
	e, err := New(Params{Kind: KindHOTP, Secret: rfcSecret, Counter: 1}, nil)
	require.NoError(t, err)
	e.Lock()

	_, err = e.AdvanceCounter()
	require.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, uint64(1), e.Counter)
}

func TestUnlock(t *testing.T) {
	ring := testRing(t, "right")
	e, err := New(Params{Secret: rfcSecret, Digits: 8}, ring)
	require.NoError(t, err)
	e.Lock()

	require.ErrorIs(t, e.Unlock(nil), ErrLocked)
	require.ErrorIs(t, e.Unlock(testRing(t, "wrong")), cryptox.ErrAuthenticationFailed)
	assert.False(t, e.IsUnlocked())

	require.NoError(t, e.Unlock(ring))
	code, err := e.CurrentCode(59)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)
}

func TestUnlock_CiphertextBoundToHash(t *testing.T) {
	ring := testRing(t, "pw")
	a, err := New(Params{Secret: rfcSecret}, ring)
	require.NoError(t, err)
	b, err := New(Params{Secret: "JBSWY3DPEHPK3PXP"}, ring)
	require.NoError(t, err)

	// swapping secrets between records must not decrypt
	b.Secret = a.Secret
	require.ErrorIs(t, b.Unlock(ring), cryptox.ErrAuthenticationFailed)
}

func TestReencrypt(t *testing.T) {
	first := testRing(t, "one")
	second := testRing(t, "two")

	e, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)

	// plain -> encrypted
	require.NoError(t, e.Reencrypt(nil, first))
	require.True(t, e.Secret.IsEncrypted())

	// change passphrase
	require.NoError(t, e.Reencrypt(first, second))
	e.Lock()
	require.ErrorIs(t, e.Unlock(first), cryptox.ErrAuthenticationFailed)
	require.NoError(t, e.Unlock(second))

	// encrypted -> plain
	require.NoError(t, e.Reencrypt(second, nil))
	assert.Equal(t, rfcSecret, e.Secret.Plain)
	assert.False(t, e.Secret.IsEncrypted())
}

func TestReencrypt_FailureLeavesEntryUnchanged(t *testing.T) {
	ring := testRing(t, "one")
	e, err := New(Params{Secret: rfcSecret}, ring)
	require.NoError(t, err)
	before := *e.Secret.Encrypted

	err = e.Reencrypt(testRing(t, "wrong"), testRing(t, "new"))
	require.ErrorIs(t, err, cryptox.ErrAuthenticationFailed)
	assert.Equal(t, before, *e.Secret.Encrypted)

	require.NoError(t, e.Unlock(ring))
}

func TestReencrypt_Legacy(t *testing.T) {
	e := &Entry{
		Hash:   "legacy-1",
		Kind:   KindTOTP,
		Period: 30,
		Digits: 8,
		Secret: StoredSecret{Legacy: base64.StdEncoding.EncodeToString([]byte(rfcSecret))},
	}
	ring := testRing(t, "pw")

	require.NoError(t, e.Reencrypt(nil, ring))
	assert.True(t, e.Secret.IsEncrypted())
	assert.False(t, e.Secret.IsLegacy())

	code, err := e.CurrentCode(59)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)
}

func TestSecondsRemaining(t *testing.T) {
	totp, err := New(Params{Secret: rfcSecret, Period: 60}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), totp.SecondsRemaining(119))

	hotp, err := New(Params{Kind: KindHOTP, Secret: rfcSecret}, nil)
	require.NoError(t, err)
	assert.Zero(t, hotp.SecondsRemaining(119))
}

func TestTogglePin(t *testing.T) {
	e, err := New(Params{Secret: rfcSecret}, nil)
	require.NoError(t, err)

	e.TogglePin()
	assert.True(t, e.Pinned)
	e.TogglePin()
	assert.False(t, e.Pinned)
}

func TestUpdate(t *testing.T) {
	e, err := New(Params{Issuer: "Old", Account: "a", Secret: rfcSecret}, nil)
	require.NoError(t, err)

	issuer, period, digits := "New", uint32(60), 8
	require.NoError(t, e.Update(EntryUpdate{Issuer: &issuer, Period: &period, Digits: &digits}))
	assert.Equal(t, "New", e.Issuer)
	assert.Equal(t, "a", e.Account)
	assert.Equal(t, uint32(60), e.Period)
	assert.Equal(t, 8, e.Digits)

	bad, zero := 12, uint32(0)
	account := "changed"
	require.ErrorIs(t, e.Update(EntryUpdate{Account: &account, Digits: &bad}), otp.ErrInvalidParameter)
	require.ErrorIs(t, e.Update(EntryUpdate{Period: &zero}), otp.ErrInvalidParameter)
	assert.Equal(t, "a", e.Account, "failed update must not apply partially")

	colon := "team:ops"
	require.ErrorIs(t, e.Update(EntryUpdate{Account: &colon}), otpauth.ErrInvalidLabel)
	assert.Equal(t, "a", e.Account)

	steam, err := New(Params{Kind: KindSteam, Secret: rfcSecret}, nil)
	require.NoError(t, err)
	six := 6
	require.ErrorIs(t, steam.Update(EntryUpdate{Digits: &six}), otp.ErrInvalidParameter)
}

func TestDescriptor_RoundTripsThroughURI(t *testing.T) {
	d, err := otpauth.Parse("otpauth://hotp/ACME:bob?secret=JBSWY3DPEHPK3PXP&counter=9&digits=8&algorithm=SHA256")
	require.NoError(t, err)

	e, err := New(ParamsFromDescriptor(*d), nil)
	require.NoError(t, err)
	assert.Equal(t, KindHOTP, e.Kind)

	got, err := e.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, d, got)

	e.Lock()
	_, err = e.Descriptor()
	require.ErrorIs(t, err, ErrLocked)
}

func TestDescriptor_ColonsSurviveURI(t *testing.T) {
	e, err := New(Params{Issuer: "X", Account: "a:b:c", Secret: rfcSecret}, nil)
	require.NoError(t, err)

	d, err := e.Descriptor()
	require.NoError(t, err)
	got, err := otpauth.Parse(otpauth.Format(*d))
	require.NoError(t, err)
	assert.Equal(t, "X", got.Issuer)
	assert.Equal(t, "a:b:c", got.Account)
}

func TestEntry_NeverPrintsSecret(t *testing.T) {
	e, err := New(Params{Issuer: "Example", Account: "alice", Secret: rfcSecret}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("entry", "entry", e)

	for _, s := range []string{e.String(), e.GoString(), fmt.Sprintf("%v %+v %#v", e, e, e), buf.String()} {
		assert.NotContains(t, s, rfcSecret)
	}
	assert.Contains(t, buf.String(), "entry.issuer=Example")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "G (a)", (&Entry{Issuer: "G", Account: "a"}).Label())
	assert.Equal(t, "G", (&Entry{Issuer: "G"}).Label())
	assert.Equal(t, "a", (&Entry{Account: "a"}).Label())
}

func TestClone_Independent(t *testing.T) {
	e, err := New(Params{Secret: rfcSecret, Kind: KindHOTP}, nil)
	require.NoError(t, err)

	c := e.Clone()
	e.Lock()

	assert.False(t, e.IsUnlocked())
	assert.True(t, c.IsUnlocked())

	code, err := c.CurrentCode(0)
	require.NoError(t, err)
	assert.Equal(t, "755224", code)

	c.TogglePin()
	assert.False(t, e.Pinned)
}
