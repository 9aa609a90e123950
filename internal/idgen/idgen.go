// Package idgen generates short, URL-safe request identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to every request ID.
const RequestPrefix = "req-"

// alphabet is the character set of the random portion.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 16

// RequestID returns a new ID for tagging an outgoing request.
func RequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns a new random ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
