package redemption

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrRequestNotFound    = apperr.NotFound("REDEMPTION_NOT_FOUND", "Redemption request not found")
	ErrAlreadyDecided     = apperr.BusinessRule("REDEMPTION_ALREADY_DECIDED", "Redemption request has already been decided")
	ErrInsufficientPoints = apperr.BusinessRule("INSUFFICIENT_POINTS", "Not enough available points")
	ErrBelowMinimum       = apperr.BusinessRule(ReasonBelowMinimum, "Requested points are below the redemption minimum")
	ErrNoGoldPrice        = apperr.NotFound("PRICE_NOT_FOUND", "No gold price is available to value the payout")
)

// ineligible turns a failed eligibility check into a business-rule error.
func ineligible(e *Eligibility) error {
	return apperr.BusinessRule(e.Reason, reasonMessages[e.Reason])
}

var reasonMessages = map[string]string{
	ReasonOutsideWindow: "Redemptions are only accepted at the start of the month",
	ReasonNotActive:     "Enrollment is not active",
	ReasonBelowMinimum:  "Not enough points to redeem",
	ReasonPendingExists: "A bonus redemption request is already pending",
}
