package token

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeToken(t *testing.T, contents []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".talloc.jwt")
	require.NoError(t, os.WriteFile(p, contents, 0o600))
	return p
}

func TestLoad(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{"plain", "abc.def.ghi", "abc.def.ghi"},
		{"trailing newline", "abc.def.ghi\n", "abc.def.ghi"},
		{"surrounding whitespace", " \t abc.def.ghi \r\n\n", "abc.def.ghi"},
		{"inner whitespace kept", "abc def", "abc def"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Load(writeToken(t, []byte(c.contents)))
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), ".talloc.jwt")
		_, err := Load(p)
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "Missing")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Load(writeToken(t, []byte(" \n\t\n")))
		require.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("not text", func(t *testing.T) {
		_, err := Load(writeToken(t, []byte{0xff, 0xfe, 0xfd}))
		require.ErrorIs(t, err, ErrNotText)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
	})
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(-time.Hour)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "z5555555",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("not-the-server-key"))
	require.NoError(t, err)

	claims, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "z5555555", claims.Subject)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
	assert.True(t, claims.Expired(time.Now()))
	assert.False(t, claims.Expired(exp.Add(-time.Minute)))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "z1"}).
		SignedString([]byte("k"))
	require.NoError(t, err)
	claims, err = Inspect(noExp)
	require.NoError(t, err)
	assert.False(t, claims.Expired(time.Now()))

	_, err = Inspect("abc.def")
	require.Error(t, err)
}
