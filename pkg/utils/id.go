package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}

// NewPrefixedID returns prefix_<uuid>, used for ids that show up in logs.
func NewPrefixedID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
