package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldsave/goldsave-api/internal/domain/admin"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
)

func TestMountMemberEnrollmentRoutes(t *testing.T) {
	root := chi.NewRouter()

	hit := ""
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hit = name
			w.WriteHeader(http.StatusOK)
		}
	}
	passthrough := func(next http.Handler) http.Handler { return next }

	mountMemberEnrollmentRoutes(root, passthrough, memberEnrollmentRoutes{
		list:         handler("list"),
		get:          handler("get"),
		summary:      handler("summary"),
		transactions: handler("transactions"),
		eligibility:  handler("eligibility"),
		redeem:       handler("redeem"),
		redemptions:  handler("redemptions"),
	})

	id := uuid.NewString()
	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/enrollments", "list"},
		{http.MethodGet, "/enrollments/" + id, "get"},
		{http.MethodGet, "/enrollments/" + id + "/summary", "summary"},
		{http.MethodGet, "/enrollments/" + id + "/transactions", "transactions"},
		{http.MethodGet, "/enrollments/" + id + "/redemptions/eligibility", "eligibility"},
		{http.MethodPost, "/enrollments/" + id + "/redemptions", "redeem"},
		{http.MethodGet, "/enrollments/" + id + "/redemptions", "redemptions"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			hit = ""
			rr := httptest.NewRecorder()
			root.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != http.StatusOK || hit != tc.want {
				t.Fatalf("%s %s: status %d, hit %q", tc.method, tc.path, rr.Code, hit)
			}
		})
	}

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/enrollments/"+id, nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

type adminRepo struct {
	admins map[uuid.UUID]*admin.AdminUser
}

func (r *adminRepo) Create(context.Context, *admin.AdminUser) error { return nil }
func (r *adminRepo) GetByID(_ context.Context, id uuid.UUID) (*admin.AdminUser, error) {
	return r.admins[id], nil
}
func (r *adminRepo) GetByEmail(context.Context, string) (*admin.AdminUser, error) { return nil, nil }

func TestAdminGuard(t *testing.T) {
	adminJWT := jwt.NewService("admin-secret", time.Minute, "goldsave-admin")
	userJWT := jwt.NewService("user-secret", time.Minute, "goldsave-user")

	active, removed := uuid.New(), uuid.New()
	repo := &adminRepo{admins: map[uuid.UUID]*admin.AdminUser{
		active: {ID: active, IsActive: true},
	}}
	protected := adminGuard(adminJWT, repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		return rr.Code
	}

	good, _ := adminJWT.GenerateAccessToken(active, jwt.RoleAdmin, "")
	if code := call(good); code != http.StatusOK {
		t.Fatalf("active admin: expected 200, got %d", code)
	}

	gone, _ := adminJWT.GenerateAccessToken(removed, jwt.RoleAdmin, "")
	if code := call(gone); code != http.StatusUnauthorized {
		t.Fatalf("removed admin: expected 401, got %d", code)
	}

	member, _ := userJWT.GenerateAccessToken(active, jwt.RoleUser, "m@example.com")
	if code := call(member); code != http.StatusUnauthorized {
		t.Fatalf("user token: expected 401, got %d", code)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := healthHandler(pingFunc(func(context.Context) error { return nil }), nil)
	w := httptest.NewRecorder()
	up.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	down := healthHandler(pingFunc(func(context.Context) error { return errors.New("refused") }), nil)
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
