package goldprice

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
)

// BonusPerGram is the points one gram earns for a move from prev to next.
// Both prices are truncated to whole units before they are compared.
func BonusPerGram(next, prev decimal.Decimal, modValue, defaultBonus int64) (diff, perGram int64) {
	diff = next.Floor().IntPart() - prev.Floor().IntPart()
	if diff > 0 {
		return diff, (diff + modValue - 1) / modValue
	}
	return diff, defaultBonus
}

// PointsFor scales a per-gram bonus to a scheme's grams, rounding half up.
func PointsFor(perGram int64, goldGrams decimal.Decimal) int64 {
	return decimal.NewFromInt(perGram).Mul(goldGrams).Round(0).IntPart()
}

// CalculateAndAddBonusPoints credits every ACTIVE enrollment for newPrice.
// Credits already posted for newPrice are reversed first so a rerun never
// double-awards. Each enrollment runs under its own savepoint; one failing
// enrollment is counted and skipped.
func (s *Service) CalculateAndAddBonusPoints(ctx context.Context, newPrice, previousDayPrice *GoldPrice) (*BonusResult, error) {
	start := time.Now()
	result := &BonusResult{PriceID: newPrice.ID, PreviousPriceID: previousDayPrice.ID}
	logger := log.With().
		Str("price_date", dates.Format(newPrice.PriceDate)).
		Str("price_id", newPrice.ID.String()).
		Logger()

	err := s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		reversed, err := s.reversePricePoints(ctx, q, newPrice.ID)
		if err != nil {
			return err
		}
		result.PointsReversed = reversed

		defaultBonus, err := s.settings.Int(ctx, setting.KeyDefaultBonusPoints)
		if err != nil {
			return err
		}
		modValue, err := s.settings.Int(ctx, setting.KeyBonusModValue)
		if err != nil {
			return err
		}
		if modValue <= 0 {
			return apperr.Configuration(setting.KeyBonusModValue)
		}
		if defaultBonus < 0 {
			return apperr.Configuration(setting.KeyDefaultBonusPoints)
		}

		result.PriceDifference, result.BonusPerGram = BonusPerGram(newPrice.PricePerGram, previousDayPrice.PricePerGram, modValue, defaultBonus)

		active, err := s.enrollments.ListActiveWithGrams(ctx, q)
		if err != nil {
			return err
		}

		desc := fmt.Sprintf("Gold price bonus for %s", dates.Format(newPrice.PriceDate))
		for i := range active {
			e := &active[i]
			points := PointsFor(result.BonusPerGram, e.GoldGrams)

			err := database.Savepoint(ctx, q, "bonus_item", func() error {
				if points <= 0 {
					return nil
				}
				priceID := newPrice.ID
				if _, err := s.ledger.Post(ctx, q, ledger.TransactionInput{
					EnrollmentID: e.ID,
					Type:         ledger.TypePoints,
					Points:       points,
					PriceRefID:   &priceID,
					Description:  desc,
				}); err != nil {
					return err
				}
				return s.enrollments.AdjustPoints(ctx, q, e.ID, points)
			})
			if err != nil {
				result.Failed++
				logger.Error().Err(err).Str("enrollment_id", e.ID.String()).Msg("Bonus credit failed")
				continue
			}
			result.EnrollmentsProcessed++
			if points > 0 {
				result.TransactionsCreated++
				result.PointsAwarded += points
			}
		}
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.BonusRunsTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		return nil, err
	}
	metrics.BonusPointsAwarded.Add(float64(result.PointsAwarded))

	logger.Info().
		Int64("price_difference", result.PriceDifference).
		Int64("bonus_per_gram", result.BonusPerGram).
		Int64("points_awarded", result.PointsAwarded).
		Int("enrollments", result.EnrollmentsProcessed).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("Bonus points calculated")
	return result, nil
}
