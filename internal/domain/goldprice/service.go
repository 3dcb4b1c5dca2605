package goldprice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
)

type SettingsReader interface {
	Int(ctx context.Context, key string) (int64, error)
}

// EnrollmentStore is the slice of enrollment persistence the bonus engine needs
type EnrollmentStore interface {
	ListActiveWithGrams(ctx context.Context, q sqlx.ExtContext) ([]enrollment.Detail, error)
	AdjustPoints(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, delta int64) error
}

type Ledger interface {
	Post(ctx context.Context, q sqlx.ExtContext, in ledger.TransactionInput) (*ledger.Transaction, error)
	SoftDeletePointsByPrice(ctx context.Context, q sqlx.ExtContext, priceID uuid.UUID) ([]ledger.Reversal, error)
}

// Publisher pushes new prices to live subscribers
type Publisher interface {
	PublishPrice(ctx context.Context, date time.Time, pricePerGram decimal.Decimal) error
}

type Service struct {
	tx          database.Transactor
	repo        Repository
	settings    SettingsReader
	enrollments EnrollmentStore
	ledger      Ledger
	publisher   Publisher
}

func NewService(tx database.Transactor, repo Repository, settings SettingsReader, enrollments EnrollmentStore, ledger Ledger, publisher Publisher) *Service {
	return &Service{
		tx:          tx,
		repo:        repo,
		settings:    settings,
		enrollments: enrollments,
		ledger:      ledger,
		publisher:   publisher,
	}
}

// SetPrice records the price for date.
//
// The replacement runs in two transactions: the first swaps the price rows,
// the second reverses bonus points that referenced the replaced row. The bonus
// for the new price is then computed against the previous day. A bonus failure
// is reported in the result and does not undo the price.
func (s *Service) SetPrice(ctx context.Context, date time.Time, pricePerGram decimal.Decimal) (*SetPriceResult, error) {
	if !pricePerGram.IsPositive() {
		return nil, ErrInvalidPrice
	}
	date = dates.Normalize(date)

	var (
		price    = &GoldPrice{PriceDate: date, PricePerGram: pricePerGram}
		replaced *GoldPrice
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		existing, err := s.repo.FindActiveForUpdate(ctx, q, date)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := s.repo.MarkDeleted(ctx, q, existing.ID); err != nil {
				return err
			}
			replaced = existing
		}
		return s.repo.Insert(ctx, q, price)
	})
	if err != nil {
		return nil, err
	}

	result := &SetPriceResult{Price: price}
	logger := log.With().Str("date", dates.Format(date)).Str("price_id", price.ID.String()).Logger()

	if replaced != nil {
		metrics.PriceReplacementsTotal.Inc()
		result.ReplacedPriceID = &replaced.ID
		err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
			n, err := s.reversePricePoints(ctx, q, replaced.ID)
			result.PointsReversed = n
			return err
		})
		if err != nil {
			logger.Error().Err(err).Str("replaced_price_id", replaced.ID.String()).Msg("Price replaced but bonus reversal failed")
			return result, fmt.Errorf("reverse points of replaced price %s: %w", replaced.ID, err)
		}
		logger.Info().
			Str("replaced_price_id", replaced.ID.String()).
			Int64("points_reversed", result.PointsReversed).
			Msg("Gold price replaced")
	}

	prev, err := s.repo.GetByDate(ctx, nil, date.AddDate(0, 0, -1))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load previous day price")
		result.BonusError = err.Error()
	} else if prev != nil {
		bonus, err := s.CalculateAndAddBonusPoints(ctx, price, prev)
		if err != nil {
			logger.Error().Err(err).Msg("Bonus computation failed")
			result.BonusError = err.Error()
		} else {
			result.Bonus = bonus
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPrice(ctx, date, pricePerGram); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish price update")
		}
	}

	logger.Info().Str("price_per_gram", pricePerGram.String()).Msg("Gold price recorded")
	return result, nil
}

// reversePricePoints soft-deletes every live bonus credit tied to priceID and
// takes the points back from each enrollment, never below zero.
func (s *Service) reversePricePoints(ctx context.Context, q sqlx.ExtContext, priceID uuid.UUID) (int64, error) {
	reversals, err := s.ledger.SoftDeletePointsByPrice(ctx, q, priceID)
	if err != nil {
		return 0, err
	}

	perEnrollment := make(map[uuid.UUID]int64)
	var order []uuid.UUID
	var total int64
	for _, rv := range reversals {
		if _, seen := perEnrollment[rv.EnrollmentID]; !seen {
			order = append(order, rv.EnrollmentID)
		}
		perEnrollment[rv.EnrollmentID] += rv.Points
		total += rv.Points
	}
	for _, id := range order {
		if err := s.enrollments.AdjustPoints(ctx, q, id, -perEnrollment[id]); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// RerunBonus recomputes the bonus of the price recorded for date.
func (s *Service) RerunBonus(ctx context.Context, date time.Time) (*BonusResult, error) {
	date = dates.Normalize(date)
	price, err := s.repo.GetByDate(ctx, nil, date)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotFound, dates.Format(date))
	}
	prev, err := s.repo.GetByDate(ctx, nil, date.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, ErrNoPreviousDay
	}
	return s.CalculateAndAddBonusPoints(ctx, price, prev)
}

func (s *Service) Latest(ctx context.Context) (*GoldPrice, error) {
	p, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPriceNotFound
	}
	return p, nil
}

func (s *Service) GetByDate(ctx context.Context, date time.Time) (*GoldPrice, error) {
	p, err := s.repo.GetByDate(ctx, nil, dates.Normalize(date))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotFound, dates.Format(date))
	}
	return p, nil
}

const maxRangeDays = 366

func (s *Service) List(ctx context.Context, from, to time.Time) ([]GoldPrice, error) {
	from, to = dates.Normalize(from), dates.Normalize(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if dates.DaysBetween(from, to) > maxRangeDays {
		return nil, ErrRangeTooLarge
	}
	return s.repo.List(ctx, from, to)
}
