// Package id generates opaque identifiers for tasks, sessions, and pending
// account requests.
//
// IDs are random UUIDv4 values encoded as lowercase base32 without padding,
// which yields 26 URL-safe characters.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}
