package models

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/otpkeeper/internal/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Properties(t *testing.T) {
	tests := []struct {
		kind     Kind
		name     string
		counter  bool
		renderer otp.Renderer
		digits   int
	}{
		{KindTOTP, "totp", false, otp.Decimal, 6},
		{KindHOTP, "hotp", true, otp.Decimal, 6},
		{KindBattle, "battle", false, otp.Decimal, 8},
		{KindSteam, "steam", false, otp.Steam, 5},
		{KindHex, "hex", false, otp.Hex, 6},
		{KindHOTPHex, "hhex", true, otp.Hex, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.counter, tt.kind.IsCounterBased())
			assert.Equal(t, tt.digits, tt.kind.DefaultDigits())
			assert.Equal(t, tt.renderer.Render(0x4c93cf18, 6), tt.kind.Renderer().Render(0x4c93cf18, 6))

			parsed, err := ParseKind(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, parsed)
		})
	}
}

func TestKind_LegacyCodes(t *testing.T) {
	for code := 1; code <= 6; code++ {
		var k Kind
		require.NoError(t, json.Unmarshal([]byte{byte('0' + code)}, &k))
		assert.Equal(t, Kind(code), k)
	}

	var k Kind
	require.Error(t, json.Unmarshal([]byte(`0`), &k))
	require.Error(t, json.Unmarshal([]byte(`7`), &k))
	require.Error(t, json.Unmarshal([]byte(`"yubikey"`), &k))
	require.NoError(t, json.Unmarshal([]byte(`"STEAM"`), &k))
	assert.Equal(t, KindSteam, k)
}

func TestKind_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(KindHOTPHex)
	require.NoError(t, err)
	assert.Equal(t, `"hhex"`, string(b))

	_, err = json.Marshal(Kind(0))
	require.Error(t, err)
	assert.Equal(t, "Kind(0)", Kind(0).String())
}
