package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

type decisionRequest struct {
	Status  string          `json:"status" validate:"required,decision"`
	Price   decimal.Decimal `json:"price" validate:"dec_gt0"`
	OnDate  string          `json:"date" validate:"required,iso_date"`
	Remarks string          `json:"remarks" validate:"max=10"`
}

func TestValidateCustomTags(t *testing.T) {
	errs := Validate(&decisionRequest{
		Status:  "MAYBE",
		Price:   decimal.Zero,
		OnDate:  "15/01/2025",
		Remarks: "this one is far too long",
	})

	for _, field := range []string{"status", "price", "date", "remarks"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for %q, got %v", field, errs)
		}
	}
}

func TestValidateOK(t *testing.T) {
	errs := Validate(&decisionRequest{
		Status: "APPROVED",
		Price:  decimal.NewFromInt(5000),
		OnDate: "2025-01-15",
	})
	if errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
