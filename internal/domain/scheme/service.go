package scheme

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a scheme. A duplicate name surfaces as a persistence
// uniqueness error.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Scheme, error) {
	sc := &Scheme{
		Name:           strings.TrimSpace(req.Name),
		DurationMonths: req.DurationMonths,
		GoldGrams:      req.GoldGrams,
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Scheme, error) {
	sc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemeNotFound, id)
	}
	return sc, nil
}

func (s *Service) List(ctx context.Context) ([]Scheme, error) {
	return s.repo.List(ctx)
}
