package application

import (
	"errors"

	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

var (
	// ErrNotFound reports a missing user id or email.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken reports a duplicate email at write time.
	ErrEmailTaken = errors.New("email already in use")
)

// AsValidation reports whether err is a field validation failure and, if so,
// which field and why.
func AsValidation(err error) (*validation.Error, bool) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
