package domain

import (
	"strings"

	"github.com/google/uuid"
)

// provisionalPrefix distinguishes client-generated ids from server-assigned
// UUIDs. An entity created offline or by a guest carries a provisional id
// until a successful remote write supersedes it with the server's id.
const provisionalPrefix = "local-"

// NewProvisionalID returns a fresh client-generated id.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was generated locally and has not yet
// been superseded by a server-assigned id.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}
