// multa/store/errors.go
package store

import "errors"

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique key (id or email) is already taken.
	ErrDuplicate = errors.New("duplicate document")
)
