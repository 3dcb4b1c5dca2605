package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
)

type fakeAdminRepo struct {
	byID map[uuid.UUID]*AdminUser
}

func (f *fakeAdminRepo) Create(_ context.Context, a *AdminUser) error {
	a.ID = uuid.New()
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id uuid.UUID) (*AdminUser, error) {
	return f.byID[id], nil
}

func (f *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*AdminUser, error) {
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func serveAs(t *testing.T, repo Repository, id uuid.UUID) int {
	t.Helper()
	h := RequireActive(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), id, jwt.RoleAdmin, ""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireActive(t *testing.T) {
	active := &AdminUser{ID: uuid.New(), IsActive: true}
	inactive := &AdminUser{ID: uuid.New(), IsActive: false}
	repo := &fakeAdminRepo{byID: map[uuid.UUID]*AdminUser{active.ID: active, inactive.ID: inactive}}

	if code := serveAs(t, repo, active.ID); code != http.StatusOK {
		t.Errorf("active admin: expected 200, got %d", code)
	}
	if code := serveAs(t, repo, inactive.ID); code != http.StatusForbidden {
		t.Errorf("inactive admin: expected 403, got %d", code)
	}
	if code := serveAs(t, repo, uuid.New()); code != http.StatusUnauthorized {
		t.Errorf("unknown admin: expected 401, got %d", code)
	}
}

func TestCreateAdminRejectsDuplicate(t *testing.T) {
	repo := &fakeAdminRepo{byID: map[uuid.UUID]*AdminUser{}}
	svc := NewService(repo)

	if _, err := svc.CreateAdmin(context.Background(), "Ops@Example.com", "Ops", "longenough"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateAdmin(context.Background(), "ops@example.com", "Ops", "longenough"); err != ErrAdminExists {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}
	if _, err := svc.CreateAdmin(context.Background(), "x@example.com", "X", "short"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}
