package redemption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
)

type SettingsReader interface {
	Int(ctx context.Context, key string) (int64, error)
	IntOrDefault(ctx context.Context, key string, def int64) (int64, error)
}

type EnrollmentStore interface {
	GetByID(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error)
	GetDetail(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Detail, error)
	DeductAvailable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, points int64) (bool, error)
	SetStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status enrollment.Status) error
}

type Ledger interface {
	Post(ctx context.Context, q sqlx.ExtContext, in ledger.TransactionInput) (*ledger.Transaction, error)
	SoftDeleteByRedemption(ctx context.Context, q sqlx.ExtContext, requestID uuid.UUID) (int64, error)
}

type PriceReader interface {
	Latest(ctx context.Context) (*goldprice.GoldPrice, error)
}

// DecisionNotifier tells members about decided requests
type DecisionNotifier interface {
	SendRedemptionDecision(to, name, requestType, status, remarks string)
}

type Service struct {
	tx          database.Transactor
	repo        Repository
	enrollments EnrollmentStore
	ledger      Ledger
	settings    SettingsReader
	prices      PriceReader
	notifier    DecisionNotifier
	loc         *time.Location
	now         func() time.Time
}

func NewService(
	tx database.Transactor,
	repo Repository,
	enrollments EnrollmentStore,
	ledger Ledger,
	settings SettingsReader,
	prices PriceReader,
	notifier DecisionNotifier,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tx:          tx,
		repo:        repo,
		enrollments: enrollments,
		ledger:      ledger,
		settings:    settings,
		prices:      prices,
		notifier:    notifier,
		loc:         loc,
		now:         time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CheckEligibility reports whether userID may open a BONUS request now.
func (s *Service) CheckEligibility(ctx context.Context, userID, enrollmentID uuid.UUID) (*Eligibility, error) {
	e, err := s.enrollments.GetByID(ctx, nil, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.UserID != userID {
		return nil, fmt.Errorf("%w: %s", enrollment.ErrEnrollmentNotFound, enrollmentID)
	}
	return s.eligibility(ctx, nil, e)
}

// eligibility fails closed in a fixed order: window, status, balance,
// outstanding request.
func (s *Service) eligibility(ctx context.Context, q sqlx.ExtContext, e *enrollment.Enrollment) (*Eligibility, error) {
	window, err := s.settings.IntOrDefault(ctx, setting.KeyRedemptionWindow, setting.DefaultRedemptionWindow)
	if err != nil {
		return nil, err
	}
	minimum, err := s.settings.IntOrDefault(ctx, setting.KeyMinimumRedemptionPoints, setting.DefaultMinimumRedemptionPoints)
	if err != nil {
		return nil, err
	}

	el := &Eligibility{
		AvailablePoints: e.AvailablePoints,
		MinimumPoints:   minimum,
		WindowDay:       window,
	}

	switch {
	case int64(s.now().In(s.loc).Day()) > window:
		el.Reason = ReasonOutsideWindow
	case e.Status != enrollment.StatusActive:
		el.Reason = ReasonNotActive
	case e.AvailablePoints < minimum:
		el.Reason = ReasonBelowMinimum
		el.PointsNeeded = minimum - e.AvailablePoints
	default:
		pending, err := s.repo.HasPending(ctx, q, e.ID, TypeBonus)
		if err != nil {
			return nil, err
		}
		if pending {
			el.Reason = ReasonPendingExists
		}
	}
	el.Eligible = el.Reason == ""
	return el, nil
}

// CreateRequest opens a PENDING BONUS request. The enrollment row stays locked
// while eligibility is re-checked, so concurrent submissions serialize and the
// second one sees the first as pending.
func (s *Service) CreateRequest(ctx context.Context, userID, enrollmentID uuid.UUID, points int64) (*Request, error) {
	var out *Request
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		e, err := s.enrollments.GetForUpdate(ctx, q, enrollmentID)
		if err != nil {
			return err
		}
		if e == nil || e.UserID != userID {
			return fmt.Errorf("%w: %s", enrollment.ErrEnrollmentNotFound, enrollmentID)
		}

		el, err := s.eligibility(ctx, q, e)
		if err != nil {
			return err
		}
		if !el.Eligible {
			return ineligible(el)
		}
		if points < el.MinimumPoints {
			return ErrBelowMinimum
		}
		if points > e.AvailablePoints {
			return ErrInsufficientPoints
		}

		req := &Request{
			EnrollmentID: enrollmentID,
			Type:         TypeBonus,
			Points:       &points,
		}
		if err := s.repo.Create(ctx, q, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", out.ID.String()).
		Str("enrollment_id", enrollmentID.String()).
		Int64("points", points).
		Msg("Bonus redemption requested")
	return out, nil
}

// ApproveRedemption applies an admin decision to a PENDING request in one
// transaction.
func (s *Service) ApproveRedemption(ctx context.Context, requestID, adminID uuid.UUID, remarks string, status Status) (*Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, apperr.Validation(map[string]string{"status": "Must be one of: APPROVED, REJECTED"})
	}
	remarks = strings.TrimSpace(remarks)

	var (
		out    *Request
		member *enrollment.Detail
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		req, err := s.repo.GetForUpdate(ctx, q, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		if req.Status != StatusPending {
			return ErrAlreadyDecided
		}

		if _, err := s.enrollments.GetForUpdate(ctx, q, req.EnrollmentID); err != nil {
			return err
		}
		d, err := s.enrollments.GetDetail(ctx, q, req.EnrollmentID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: %s", enrollment.ErrEnrollmentNotFound, req.EnrollmentID)
		}

		switch {
		case status == StatusRejected:
			if _, err := s.ledger.SoftDeleteByRedemption(ctx, q, req.ID); err != nil {
				return err
			}
		case req.Type == TypeBonus:
			if err := s.settleBonus(ctx, q, req); err != nil {
				return err
			}
		case req.Type == TypeMaturity:
			if err := s.settleMaturity(ctx, q, req, d); err != nil {
				return err
			}
		}

		at := s.now().UTC()
		if err := s.repo.Decide(ctx, q, req.ID, status, adminID, remarks, at); err != nil {
			return err
		}
		req.Status = status
		req.ApprovedBy = &adminID
		req.ApprovedAt = &at
		req.Remarks = remarks
		out = req
		member = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RedemptionDecisionsTotal.WithLabelValues(string(out.Type), string(out.Status)).Inc()
	if s.notifier != nil {
		s.notifier.SendRedemptionDecision(member.UserEmail, member.UserName, string(out.Type), string(out.Status), remarks)
	}
	log.Info().
		Str("request_id", out.ID.String()).
		Str("type", string(out.Type)).
		Str("status", string(out.Status)).
		Str("admin_id", adminID.String()).
		Msg("Redemption decided")
	return out, nil
}

// settleBonus debits the redeemed points plus the convenience fee.
func (s *Service) settleBonus(ctx context.Context, q sqlx.ExtContext, req *Request) error {
	fee, err := s.settings.Int(ctx, setting.KeyConvenienceFee)
	if err != nil {
		return err
	}
	if fee < 0 {
		return apperr.Configuration(setting.KeyConvenienceFee)
	}
	points := req.PointsValue()
	reqID := req.ID

	if _, err := s.ledger.Post(ctx, q, ledger.TransactionInput{
		EnrollmentID:        req.EnrollmentID,
		Type:                ledger.TypeBonusWithdrawal,
		Points:              -points,
		RedemptionRequestID: &reqID,
		Description:         "Bonus points redeemed",
	}); err != nil {
		return err
	}
	if fee > 0 {
		if _, err := s.ledger.Post(ctx, q, ledger.TransactionInput{
			EnrollmentID:        req.EnrollmentID,
			Type:                ledger.TypeConvenienceFee,
			Points:              -fee,
			RedemptionRequestID: &reqID,
			Description:         "Redemption convenience fee",
		}); err != nil {
			return err
		}
	}

	ok, err := s.enrollments.DeductAvailable(ctx, q, req.EnrollmentID, points+fee)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientPoints
	}
	return nil
}

// settleMaturity completes the enrollment and books the gold payout at the
// latest known price.
func (s *Service) settleMaturity(ctx context.Context, q sqlx.ExtContext, req *Request, d *enrollment.Detail) error {
	// a withdrawn enrollment forfeits the payout; the admin rejects instead
	if d.Status != enrollment.StatusActive {
		return enrollment.ErrNotActive
	}
	price, err := s.prices.Latest(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return ErrNoGoldPrice
		}
		return err
	}
	if price == nil {
		return ErrNoGoldPrice
	}

	if err := s.enrollments.SetStatus(ctx, q, req.EnrollmentID, enrollment.StatusCompleted); err != nil {
		return err
	}

	totalGold := d.TotalGold()
	reqID := req.ID
	_, err = s.ledger.Post(ctx, q, ledger.TransactionInput{
		EnrollmentID:        req.EnrollmentID,
		Type:                ledger.TypeWithdrawal,
		Amount:              totalGold.Mul(price.PricePerGram).Round(2),
		GoldGrams:           totalGold,
		RedemptionRequestID: &reqID,
		Description:         fmt.Sprintf("Maturity payout of %s g at %s per gram", totalGold.String(), price.PricePerGram.StringFixed(2)),
	})
	return err
}

func (s *Service) ListForUser(ctx context.Context, userID, enrollmentID uuid.UUID) ([]Request, error) {
	e, err := s.enrollments.GetByID(ctx, nil, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.UserID != userID {
		return nil, fmt.Errorf("%w: %s", enrollment.ErrEnrollmentNotFound, enrollmentID)
	}
	return s.repo.ListByEnrollment(ctx, enrollmentID)
}

func (s *Service) List(ctx context.Context, status Status, t Type, limit, offset int) ([]Request, int, error) {
	return s.repo.List(ctx, status, t, limit, offset)
}
