// Package storage reads raw artifact documents from a filesystem tree or an
// Azure Blob container laid out as <roaster>/<platform>/<file>.
package storage

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyKey indicates an empty roaster, platform or filename.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates a key containing a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
)

func validateKey(parts ...string) error {
	for _, p := range parts {
		if p == "" {
			return ErrEmptyKey
		}
		if strings.Contains(p, "..") {
			return ErrInvalidKey
		}
	}
	return nil
}
