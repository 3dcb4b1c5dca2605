package admin

import (
	"net/http"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

// RequireActive rejects tokens of admins that were removed or deactivated
// after the token was issued. Must run after middleware.Auth.
func RequireActive(repo Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := repo.GetByID(r.Context(), middleware.GetUserID(r.Context()))
			if err != nil {
				response.InternalError(w)
				return
			}
			if a == nil {
				response.Unauthorized(w, "Admin not found")
				return
			}
			if !a.IsActive {
				response.Forbidden(w, "Admin account is inactive")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
