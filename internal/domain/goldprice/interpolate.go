package goldprice

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/dates"
)

const pricePlaces = 4

// Interpolate returns linearly interpolated prices for every date strictly
// between consecutive known prices. known must be sorted by date. Dates before
// the first or after the last known price are left empty.
func Interpolate(known []GoldPrice) []GoldPrice {
	var out []GoldPrice
	for i := 1; i < len(known); i++ {
		a, b := known[i-1], known[i]
		span := dates.DaysBetween(a.PriceDate, b.PriceDate)
		if span <= 1 {
			continue
		}
		step := b.PricePerGram.Sub(a.PricePerGram).Div(decimal.NewFromInt(int64(span)))
		for d := 1; d < span; d++ {
			out = append(out, GoldPrice{
				PriceDate:    a.PriceDate.AddDate(0, 0, d),
				PricePerGram: a.PricePerGram.Add(step.Mul(decimal.NewFromInt(int64(d)))).Round(pricePlaces),
				Interpolated: true,
			})
		}
	}
	return out
}

// FillMissing stores interpolated prices for the gaps inside [from, to].
// Interpolated rows never earn bonus points.
func (s *Service) FillMissing(ctx context.Context, from, to time.Time) ([]GoldPrice, error) {
	from, to = dates.Normalize(from), dates.Normalize(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if dates.DaysBetween(from, to) > maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	known, err := s.repo.List(ctx, from, to)
	if err != nil {
		return nil, err
	}
	filled := Interpolate(known)
	if len(filled) == 0 {
		return []GoldPrice{}, nil
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, q sqlx.ExtContext) error {
		for i := range filled {
			if err := s.repo.Insert(ctx, q, &filled[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("from", dates.Format(from)).
		Str("to", dates.Format(to)).
		Int("inserted", len(filled)).
		Msg("Missing gold prices interpolated")
	return filled, nil
}
