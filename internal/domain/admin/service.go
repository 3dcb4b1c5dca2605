package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/pkg/password"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetAdminByID returns an admin or ErrAdminNotFound
func (s *Service) GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAdminNotFound, id)
	}
	return a, nil
}

// CreateAdmin registers an operator. Used by the seed command.
func (s *Service) CreateAdmin(ctx context.Context, email, name, plain string) (*AdminUser, error) {
	email = user.NormalizeEmail(email)
	if len(plain) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAdminExists
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}

	a := &AdminUser{Email: email, Name: name, PasswordHash: hash, IsActive: true}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
