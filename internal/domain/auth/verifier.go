package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates Supabase access tokens. Supabase signs user JWTs
// with the project JWT secret using HS256; the audience is "authenticated"
// for signed-in users.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given project JWT secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

type supabaseClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verify parses and validates a raw access token, returning the user it
// identifies. Any parse, signature, expiry, or audience failure yields
// ErrUnauthorized.
func (v *TokenVerifier) Verify(raw string) (*User, error) {
	var claims supabaseClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience("authenticated"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// HashAPIKey computes the hex HMAC-SHA256 of an API key under the server
// pepper. The same function is used when seeding keys and when checking them.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckAPIKeyHash performs a constant-time comparison between a computed hex
// hash and the stored one.
func CheckAPIKeyHash(computed, stored string) bool {
	a, err := hex.DecodeString(computed)
	if err != nil {
		return false
	}
	b, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
