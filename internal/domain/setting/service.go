package setting

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

// Service reads settings by value at every call; nothing is cached so an
// admin change applies to the next request or job run.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return st, nil
}

func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Int returns a required integer setting. Missing or malformed values are an
// operator misconfiguration.
func (s *Service) Int(ctx context.Context, key string) (int64, error) {
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if st == nil {
		return 0, apperr.Configuration(key)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(st.Value), 10, 64)
	if err != nil {
		return 0, apperr.Configuration(key)
	}
	return v, nil
}

// IntOrDefault returns def when the key is absent.
func (s *Service) IntOrDefault(ctx context.Context, key string, def int64) (int64, error) {
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if st == nil {
		return def, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(st.Value), 10, 64)
	if err != nil {
		return 0, apperr.Configuration(key)
	}
	return v, nil
}

func (s *Service) Decimal(ctx context.Context, key string) (decimal.Decimal, error) {
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if st == nil {
		return decimal.Zero, apperr.Configuration(key)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(st.Value))
	if err != nil {
		return decimal.Zero, apperr.Configuration(key)
	}
	return v, nil
}

func (s *Service) Upsert(ctx context.Context, key, value string) (*Setting, error) {
	value = strings.TrimSpace(value)
	if err := validateValue(key, value); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, key, value)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	ok, err := s.repo.SoftDelete(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return nil
}

func validateValue(key, value string) error {
	kind, known := knownKeys[key]
	if !known {
		return nil
	}

	invalid := func(msg string) error {
		return apperr.Validation(map[string]string{"value": msg})
	}

	if kind == kindDecimal {
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return invalid("Must be a non-negative decimal")
		}
		return nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return invalid("Must be a non-negative integer")
	}
	switch kind {
	case kindPositiveInt:
		if n == 0 {
			return invalid("Must be greater than 0")
		}
	case kindDayOfMonth:
		if n < 1 || n > 31 {
			return invalid("Must be a day of month between 1 and 31")
		}
	}
	return nil
}
