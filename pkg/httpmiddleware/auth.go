package httpmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/domain/auth"
)

type userKey struct{}

type apiKeyKey struct{}

// UserFromContext returns the authenticated user stored by UserAuth, or nil.
func UserFromContext(ctx context.Context) *auth.User {
	u, _ := ctx.Value(userKey{}).(*auth.User)
	return u
}

// APIKeyFromContext returns the validated API key stored by APIKeyAuth, or nil.
func APIKeyFromContext(ctx context.Context) *auth.APIKeyInfo {
	k, _ := ctx.Value(apiKeyKey{}).(*auth.APIKeyInfo)
	return k
}

// UserAuth returns a middleware that requires a Bearer access token and
// stores the verified user in the request context.
func UserAuth(verifier *auth.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			user, err := verifier.Verify(raw)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			ctx = zctx.With(ctx, zap.String("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyAuth returns a middleware that requires a valid X-Api-Key header.
// The key is HMAC-hashed under the server pepper and looked up by hash, so
// plaintext keys never reach storage.
func APIKeyAuth(keys auth.APIKeyRepository, pepper []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("X-Api-Key"))
			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing api key")
				return
			}

			hash := auth.HashAPIKey(key, pepper)
			info, err := keys.FindByHash(r.Context(), hash)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}
			if !auth.CheckAPIKeyHash(hash, info.KeyHash) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyKey{}, info)
			ctx = zctx.With(ctx, zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
