// Package token loads the talloc API token from disk.
package token

import (
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// DefaultPath is where the token is looked up when nothing else is
// configured, relative to the working directory.
const DefaultPath = ".talloc.jwt"

var (
	// ErrEmpty is returned when the token file holds only whitespace.
	ErrEmpty = errors.New("token file is empty")
	// ErrNotText is returned when the token file is not valid UTF-8.
	ErrNotText = errors.New("token file is not valid text")
)

// Load reads the token stored at path and trims surrounding whitespace. The
// token is used as-is: there is no expiry check or refresh.
func Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "Missing %s token", path)
	}
	if !utf8.Valid(b) {
		return "", errors.Wrap(ErrNotText, path)
	}

	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", errors.Wrap(ErrEmpty, path)
	}
	return tok, nil
}

// Claims is what the token says about itself. Nothing here is verified.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that is before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// Inspect decodes the registered claims of a JWT without checking its
// signature. The result is only used for diagnostics.
func Inspect(tok string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &rc); err != nil {
		return Claims{}, errors.Wrap(err, "decoding token claims")
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
