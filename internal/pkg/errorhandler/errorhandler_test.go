package errorhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

func TestHandleMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation(map[string]string{"points": "required"}), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("%w: id", apperr.NotFound("ENROLLMENT_NOT_FOUND", "enrollment not found")), http.StatusNotFound, "ENROLLMENT_NOT_FOUND"},
		{"business rule", apperr.BusinessRule("OUTSIDE_WINDOW", "outside window"), http.StatusBadRequest, "OUTSIDE_WINDOW"},
		{"configuration", apperr.Configuration("bonus_mod_value"), http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{"duplicate", apperr.Persistence("insert", &pq.Error{Code: "23505"}), http.StatusBadRequest, apperr.CodeDuplicate},
		{"db failure", apperr.Persistence("insert", errors.New("conn reset")), http.StatusInternalServerError, "DB_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Handle(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body response.Response
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Fatal("expected success=false")
			}
			if body.Error == nil || body.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %+v", tc.code, body.Error)
			}
		})
	}
}
