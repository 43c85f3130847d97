// multa/service/errors.go
package service

import (
	"errors"
	"fmt"

	"github.com/Ftotnem/multa-tracker/multa/store"
)

// Custom Errors for clear communication to API layer
var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrWriteRejected      = errors.New("write rejected by store")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// storeErr maps a store error onto the service taxonomy. NotFound becomes
// notFound, anything else is a rejected write (or read) wrapping the cause.
func storeErr(err error, notFound error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", notFound, err)
	}
	return fmt.Errorf("%w: %v", ErrWriteRejected, err)
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
