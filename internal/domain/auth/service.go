package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goldsave/goldsave-api/internal/domain/admin"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
	"github.com/goldsave/goldsave-api/internal/pkg/password"
)

// UserFinder is the slice of the user repository login needs.
type UserFinder interface {
	GetByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*user.User, error)
}

// AdminFinder is the slice of the admin repository login needs.
type AdminFinder interface {
	GetByEmail(ctx context.Context, email string) (*admin.AdminUser, error)
}

// Service issues access tokens for users and admins. Each actor type has its
// own signer so a user token can never open admin routes.
type Service struct {
	users    UserFinder
	admins   AdminFinder
	userJWT  *jwt.Service
	adminJWT *jwt.Service
	now      func() time.Time
}

func NewService(users UserFinder, admins AdminFinder, userJWT, adminJWT *jwt.Service) *Service {
	return &Service{users: users, admins: admins, userJWT: userJWT, adminJWT: adminJWT, now: time.Now}
}

func (s *Service) LoginUser(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByEmail(ctx, nil, user.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u == nil || !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	return s.issue(s.userJWT, u.ID, jwt.RoleUser, u.Email)
}

func (s *Service) LoginAdmin(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	a, err := s.admins.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if a == nil || !password.Verify(req.Password, a.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrAccountInactive
	}
	return s.issue(s.adminJWT, a.ID, jwt.RoleAdmin, a.Email)
}

func (s *Service) issue(signer *jwt.Service, id uuid.UUID, role, email string) (*TokenResponse, error) {
	token, err := signer.GenerateAccessToken(id, role, email)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   s.now().Add(signer.GetAccessTTL()),
		Role:        role,
	}, nil
}
