package util

import "github.com/google/uuid"

// NewID returns a random UUIDv4 string used as a record or request id.
func NewID() string {
	return uuid.NewString()
}

// IsID reports whether s parses as a UUID.
func IsID(s string) bool {
	return uuid.Validate(s) == nil
}
