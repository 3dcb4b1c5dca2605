package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Post inserts one transaction on the caller's handle. It never touches the
// enrollment's cached balance; callers adjust it in the same transaction.
func (s *Service) Post(ctx context.Context, q sqlx.ExtContext, in TransactionInput) (*Transaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, q, in)
}

func validateInput(in TransactionInput) error {
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	switch in.Type {
	case TypePoints:
		if in.Points < 0 {
			return invalidSign("Points credits must not be negative")
		}
	case TypeBonusWithdrawal, TypeConvenienceFee, TypeAccrual:
		if in.Points > 0 {
			return invalidSign("Point debits must not be positive")
		}
	case TypeDeposit, TypeWithdrawal:
		if in.Points != 0 {
			return invalidSign("Deposits and withdrawals carry no points")
		}
		if in.Amount.IsNegative() || in.GoldGrams.IsNegative() {
			return invalidSign("Amounts are recorded unsigned; the type gives the direction")
		}
	}
	return nil
}

// SoftDeletePointsByPrice removes every live bonus credit derived from a
// price and returns what each enrollment must give back.
func (s *Service) SoftDeletePointsByPrice(ctx context.Context, q sqlx.ExtContext, priceID uuid.UUID) ([]Reversal, error) {
	return s.repo.SoftDeletePointsByPrice(ctx, q, priceID)
}

func (s *Service) SoftDeleteByRedemption(ctx context.Context, q sqlx.ExtContext, requestID uuid.UUID) (int64, error) {
	return s.repo.SoftDeleteByRedemption(ctx, q, requestID)
}

func (s *Service) SumPoints(ctx context.Context, q sqlx.ExtContext, enrollmentID uuid.UUID) (int64, error) {
	return s.repo.SumPoints(ctx, q, enrollmentID)
}

func (s *Service) List(ctx context.Context, enrollmentID uuid.UUID, limit, offset int) ([]Transaction, int, error) {
	return s.repo.ListByEnrollment(ctx, enrollmentID, limit, offset)
}

// GetSummary scans the enrollment's live transactions.
func (s *Service) GetSummary(ctx context.Context, enrollmentID uuid.UUID) (*Summary, error) {
	txs, err := s.repo.ListAllByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(txs)
	sum.EnrollmentID = enrollmentID
	return &sum, nil
}

// Summarize accumulates transactions by type.
func Summarize(txs []Transaction) Summary {
	sum := Summary{
		DepositedAmount:    decimal.Zero,
		DepositedGoldGrams: decimal.Zero,
		WithdrawnAmount:    decimal.Zero,
		WithdrawnGoldGrams: decimal.Zero,
		AccruedGoldGrams:   decimal.Zero,
	}
	for _, t := range txs {
		sum.TransactionCount++
		sum.NetPoints += t.Points
		switch t.Type {
		case TypeDeposit:
			sum.DepositedAmount = sum.DepositedAmount.Add(t.Amount)
			sum.DepositedGoldGrams = sum.DepositedGoldGrams.Add(t.GoldGrams)
		case TypeWithdrawal:
			sum.WithdrawnAmount = sum.WithdrawnAmount.Add(t.Amount)
			sum.WithdrawnGoldGrams = sum.WithdrawnGoldGrams.Add(t.GoldGrams)
		case TypePoints:
			sum.PointsEarned += t.Points
		case TypeBonusWithdrawal:
			sum.PointsRedeemed -= t.Points
		case TypeConvenienceFee:
			sum.FeesCharged -= t.Points
		case TypeAccrual:
			sum.PointsAccrued -= t.Points
			sum.AccruedGoldGrams = sum.AccruedGoldGrams.Add(t.GoldGrams)
		}
	}
	sum.NetAmount = sum.DepositedAmount.Sub(sum.WithdrawnAmount)
	sum.NetGoldGrams = sum.DepositedGoldGrams.Sub(sum.WithdrawnGoldGrams)
	return sum
}
