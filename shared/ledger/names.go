package ledger

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNameLength bounds team names, colors and player names.
const MaxNameLength = 100

// cleanPasses bounds how many layers of entity escaping CleanName peels off.
const cleanPasses = 4

var (
	ErrEmptyName   = errors.New("name must not be empty")
	ErrNameTooLong = errors.New("name must be at most 100 characters")
	ErrNestedName  = errors.New("name contains nested escaped markup")
)

var strict = bluemonday.StrictPolicy()

// CleanName strips markup and surrounding whitespace from a display string and
// rejects it when nothing printable remains or it exceeds MaxNameLength.
//
// Entities are decoded so "&amp;" reads as "&", and the result is sanitised again
// until it no longer changes, so escaped tags never come back out as live markup.
func CleanName(s string) (string, error) {
	settled := false
	for i := 0; i < cleanPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(s))
		if next == s {
			settled = true
			break
		}
		s = next
	}
	if !settled {
		return "", ErrNestedName
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return s, nil
}
