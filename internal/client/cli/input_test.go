package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"line", "GitHub\n", "GitHub", false},
		{"trims", "  alice@example.com \r\n", "alice@example.com", false},
		{"last line without newline", "JBSWY3DP", "JBSWY3DP", false},
		{"eof", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(rdr(tt.input), "Issuer", &out)
			if tt.wantErr {
				require.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, "Issuer: ", out.String())
		})
	}
}

func stubReadPassword(t *testing.T, pw string, err error) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), err }
	t.Cleanup(func() { readPassword = orig })
}

func TestGetPassword(t *testing.T) {
	stubReadPassword(t, "correct horse", nil)

	var out bytes.Buffer
	pw, err := GetPassword("Passphrase", &out)
	require.NoError(t, err)
	require.Equal(t, []byte("correct horse"), pw)
	require.Equal(t, "Passphrase: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	boom := errors.New("not a terminal")
	stubReadPassword(t, "", boom)

	_, err := GetPassword("Passphrase", io.Discard)
	require.ErrorIs(t, err, boom)
}

func TestGetOptional(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{"keeps current on empty line", "\n", "GitHub", false},
		{"takes new value", "GitLab\n", "GitLab", true},
		{"trims spaces", "  GitLab  \n", "GitLab", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, changed, err := GetOptional(rdr(tc.input), "Issuer", "GitHub", &out)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.changed, changed)
			require.Contains(t, out.String(), "Issuer [GitHub]")
		})
	}
}
