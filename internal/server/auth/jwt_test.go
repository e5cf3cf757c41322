package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("session-1", secret, time.Hour)
	require.NoError(t, err)

	got, err := GetSessionIDFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "session-1", got)
}

func TestGetSessionIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("s1", secret, -time.Second)
	require.NoError(t, err)

	_, err = GetSessionIDFromToken(tok, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetSessionIDFromToken_Invalid(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	good, err := GenerateToken("s1", secret, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: "s1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSession, err := GenerateToken("", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"wrong secret", good, []byte("other")},
		{"garbage", "not-a-jwt", secret},
		{"empty", "", secret},
		{"alg none", unsigned, secret},
		{"no session", noSession, secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetSessionIDFromToken(tt.token, tt.secret)
			require.ErrorIs(t, err, common.ErrInvalidToken)
		})
	}
}
