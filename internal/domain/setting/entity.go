package setting

import "time"

// Setting is one tunable business parameter.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	Deleted   bool      `db:"deleted" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	KeyMinimumRedemptionPoints = "minimum_redemption_points"
	KeyRedemptionWindow        = "redemption_window"
	KeyDefaultBonusPoints      = "default_bonus_points"
	KeyBonusModValue           = "bonus_mod_value"
	KeyConvenienceFee          = "convenience_fee"
	KeyPointsToGoldGrams       = "points_to_gold_grams"
)

const (
	DefaultMinimumRedemptionPoints = 100
	DefaultRedemptionWindow        = 5
)

type valueKind int

const (
	kindInt valueKind = iota + 1
	kindPositiveInt
	kindDayOfMonth
	kindDecimal
)

// knownKeys constrains the values admins may write for the keys the pipeline reads.
var knownKeys = map[string]valueKind{
	KeyMinimumRedemptionPoints: kindInt,
	KeyRedemptionWindow:        kindDayOfMonth,
	KeyDefaultBonusPoints:      kindInt,
	KeyBonusModValue:           kindPositiveInt,
	KeyConvenienceFee:          kindInt,
	KeyPointsToGoldGrams:       kindDecimal,
}
