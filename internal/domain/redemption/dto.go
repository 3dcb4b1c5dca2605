package redemption

type CreateRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

type DecisionRequest struct {
	Status  string `json:"status" validate:"required,decision"`
	Remarks string `json:"remarks" validate:"max=1000"`
}
