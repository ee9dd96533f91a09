package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenToken returns n random bytes as an URL-safe base64 string. Used for
// login challenge tokens and CSRF secrets.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
