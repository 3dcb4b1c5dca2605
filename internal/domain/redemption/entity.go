package redemption

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBonus    Type = "BONUS"
	TypeMaturity Type = "MATURITY"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request is a member's ask to cash out bonus points or the matured scheme.
// Only PENDING requests can be decided; decided requests never change again.
type Request struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	EnrollmentID uuid.UUID  `db:"enrollment_id" json:"enrollment_id"`
	Type         Type       `db:"type" json:"type"`
	Points       *int64     `db:"points" json:"points,omitempty"`
	Status       Status     `db:"status" json:"status"`
	ApprovedBy   *uuid.UUID `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	Remarks      string     `db:"remarks" json:"remarks"`
	Deleted      bool       `db:"deleted" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Reserved is what undecided BONUS requests still claim from an enrollment.
type Reserved struct {
	Requests int   `db:"requests"`
	Points   int64 `db:"points"`
}

// With returns the claimed points including one convenience fee per request.
func (r Reserved) With(fee int64) int64 {
	if fee < 0 {
		fee = 0
	}
	return r.Points + int64(r.Requests)*fee
}

func (r *Request) PointsValue() int64 {
	if r.Points == nil {
		return 0
	}
	return *r.Points
}

// Eligibility explains whether a BONUS request may be created now
type Eligibility struct {
	Eligible        bool   `json:"eligible"`
	Reason          string `json:"reason,omitempty"`
	AvailablePoints int64  `json:"available_points"`
	MinimumPoints   int64  `json:"minimum_points"`
	PointsNeeded    int64  `json:"points_needed,omitempty"`
	WindowDay       int64  `json:"window_day"`
}

const (
	ReasonOutsideWindow = "OUTSIDE_REDEMPTION_WINDOW"
	ReasonNotActive     = "ENROLLMENT_NOT_ACTIVE"
	ReasonBelowMinimum  = "BELOW_MINIMUM_POINTS"
	ReasonPendingExists = "PENDING_REQUEST_EXISTS"
)
