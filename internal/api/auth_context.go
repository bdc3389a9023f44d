package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the authenticated identity.
const identityKey ctxKey = "identity"

// IdentityFrom returns the identity stored by the auth middleware. The zero
// Identity means the request is anonymous.
func IdentityFrom(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(identityKey).(domain.Identity)
	return identity
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// requireIdentity returns the signed-in identity or an Unauthorized error.
func requireIdentity(ctx context.Context) (domain.Identity, error) {
	identity := IdentityFrom(ctx)
	if identity.Anonymous() {
		return domain.Identity{}, domainerrors.Unauthorized("must be signed in")
	}
	return identity, nil
}

// authMiddleware verifies Bearer identity tokens and stores the identity in
// context. Missing or invalid tokens leave the request anonymous; handlers
// that need an identity reject it.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := tokens.VerifyIdentityToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
