// Package auth holds the identity types shared by the two authentication
// paths: Supabase-issued user JWTs for student endpoints and HMAC-hashed
// API keys for the AI proxy endpoints.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for any failed credential check. The message is
// deliberately uniform so callers cannot distinguish missing from invalid.
var ErrUnauthorized = errors.New("unauthorized")

// User is the authenticated student extracted from a Supabase access token.
type User struct {
	ID    string
	Email string
	Role  string
}

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// APIKeyRepository provides lookup of active API keys by their HMAC hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
