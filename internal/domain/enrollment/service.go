package enrollment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/scheme"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/password"
	"github.com/goldsave/goldsave-api/internal/pkg/storage"
)

const tempPasswordLength = 12

type UserStore interface {
	Create(ctx context.Context, q sqlx.ExtContext, u *user.User) error
	GetByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*user.User, error)
}

type SchemeReader interface {
	Get(ctx context.Context, id uuid.UUID) (*scheme.Scheme, error)
}

type LedgerPoster interface {
	Post(ctx context.Context, q sqlx.ExtContext, in ledger.TransactionInput) (*ledger.Transaction, error)
}

// WelcomeSender delivers credentials to newly created members
type WelcomeSender interface {
	SendWelcome(to, name, schemeName, tempPassword, loginURL string)
}

// ObjectChecker confirms an uploaded object exists
type ObjectChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

type Service struct {
	tx       database.Transactor
	repo     Repository
	users    UserStore
	schemes  SchemeReader
	ledger   LedgerPoster
	mailer   WelcomeSender
	files    ObjectChecker
	loginURL string
}

func NewService(
	tx database.Transactor,
	repo Repository,
	users UserStore,
	schemes SchemeReader,
	ledger LedgerPoster,
	mailer WelcomeSender,
	files ObjectChecker,
	loginURL string,
) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		users:    users,
		schemes:  schemes,
		ledger:   ledger,
		mailer:   mailer,
		files:    files,
		loginURL: loginURL,
	}
}

// Enroll finds or creates the member and opens an ACTIVE enrollment. A new
// member receives a generated password by email once the transaction commits;
// delivery problems never undo the enrollment.
func (s *Service) Enroll(ctx context.Context, req *EnrollRequest) (*EnrollResponse, error) {
	start, err := dates.Parse(req.StartDate)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"start_date": "Must be a date in YYYY-MM-DD format"})
	}
	sc, err := s.schemes.Get(ctx, req.SchemeID)
	if err != nil {
		return nil, err
	}

	var (
		resp     EnrollResponse
		tempPass string
		member   *user.User
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		u, err := s.users.GetByEmail(ctx, q, req.Email)
		if err != nil {
			return err
		}
		if u == nil {
			tempPass, err = password.Generate(tempPasswordLength)
			if err != nil {
				return fmt.Errorf("generate password: %w", err)
			}
			hash, err := password.Hash(tempPass)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			u = &user.User{
				Email:        user.NormalizeEmail(req.Email),
				Name:         strings.TrimSpace(req.Name),
				Phone:        strings.TrimSpace(req.Phone),
				PasswordHash: hash,
				IsActive:     true,
			}
			if err := s.users.Create(ctx, q, u); err != nil {
				return err
			}
			resp.UserCreated = true
		}

		exists, err := s.repo.ExistsActive(ctx, q, u.ID, sc.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyEnrolled
		}

		e := &Enrollment{
			UserID:    u.ID,
			SchemeID:  sc.ID,
			StartDate: start,
			EndDate:   dates.AddMonths(start, sc.DurationMonths),
		}
		if err := s.repo.Create(ctx, q, e); err != nil {
			return err
		}
		resp.Enrollment = e
		resp.UserID = u.ID
		member = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.UserCreated && s.mailer != nil {
		s.mailer.SendWelcome(member.Email, member.Name, sc.Name, tempPass, s.loginURL)
	}
	log.Info().
		Str("enrollment_id", resp.Enrollment.ID.String()).
		Str("user_id", member.ID.String()).
		Str("scheme", sc.Name).
		Bool("user_created", resp.UserCreated).
		Msg("Member enrolled")
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrEnrollmentNotFound, id)
	}
	return d, nil
}

// GetForUser hides other members' enrollments behind not-found.
func (s *Service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Detail, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrEnrollmentNotFound, id)
	}
	return d, nil
}

func (s *Service) CheckOwner(ctx context.Context, userID, id uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if e == nil || e.UserID != userID {
		return fmt.Errorf("%w: %s", ErrEnrollmentNotFound, id)
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Detail, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Detail, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// lockActive loads the enrollment under a row lock and requires ACTIVE.
func (s *Service) lockActive(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Enrollment, error) {
	e, err := s.repo.GetForUpdate(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrEnrollmentNotFound, id)
	}
	if e.Status != StatusActive {
		return nil, ErrNotActive
	}
	return e, nil
}

// RecordDeposit books a member's instalment.
func (s *Service) RecordDeposit(ctx context.Context, id uuid.UUID, req *DepositRequest) (*ledger.Transaction, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "Instalment deposit"
	}

	var out *ledger.Transaction
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		if _, err := s.lockActive(ctx, q, id); err != nil {
			return err
		}
		t, err := s.ledger.Post(ctx, q, ledger.TransactionInput{
			EnrollmentID: id,
			Type:         ledger.TypeDeposit,
			Amount:       req.Amount,
			GoldGrams:    req.GoldGrams,
			Description:  desc,
		})
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Withdraw closes an ACTIVE enrollment early.
func (s *Service) Withdraw(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	var out *Enrollment
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		e, err := s.lockActive(ctx, q, id)
		if err != nil {
			return err
		}
		if err := s.repo.SetStatus(ctx, q, id, StatusWithdrawn); err != nil {
			return err
		}
		e.Status = StatusWithdrawn
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("enrollment_id", id.String()).Msg("Enrollment withdrawn")
	return out, nil
}

// MarkCertificateDelivered records the uploaded certificate object.
func (s *Service) MarkCertificateDelivered(ctx context.Context, id uuid.UUID, key string) (*Enrollment, error) {
	if !storage.Owns(storage.CertificatePrefix(id), key) {
		return nil, ErrInvalidCertificate
	}
	if s.files != nil {
		ok, err := s.files.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCertificateMissing
		}
	}

	var out *Enrollment
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		e, err := s.repo.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("%w: %s", ErrEnrollmentNotFound, id)
		}
		if err := s.repo.MarkCertificate(ctx, q, id, key); err != nil {
			return err
		}
		e.CertificateDelivered = true
		e.CertificateKey = &key
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
