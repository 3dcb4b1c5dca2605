package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

// Identity is the authenticated principal. Services trust it as given.
type Identity struct {
	ID    uuid.UUID
	Role  string
	Email string
}

type identityKey struct{}

// Auth returns middleware that validates a bearer token issued by jwtService.
// User and admin tokens are signed with different secrets and issuers, so a
// token from one realm never passes the other realm's guard.
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := WithIdentity(r.Context(), claims.SubjectID, claims.Role, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// WithIdentity stores the principal on ctx and tags the request logger with it.
func WithIdentity(ctx context.Context, id uuid.UUID, role, email string) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, Identity{ID: id, Role: role, Email: email})
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		child := l.With().Str("actor_id", id.String()).Str("actor_role", role).Logger()
		ctx = child.WithContext(ctx)
	}
	return ctx
}

// IdentityFrom returns the principal set by Auth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// GetUserID returns the principal id (user or admin), or uuid.Nil.
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := IdentityFrom(ctx)
	return id.ID
}

func GetRole(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.Role
}

// RequireRole rejects principals whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, GetRole(r.Context())) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
