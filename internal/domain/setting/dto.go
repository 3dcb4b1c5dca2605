package setting

type UpsertRequest struct {
	Value string `json:"value" validate:"required,max=255"`
}
