package auth

import (
	"encoding/json"
	"net/http"

	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
	"github.com/goldsave/goldsave-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserLogin handles POST /api/v1/auth/login
func (h *Handler) UserLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}
	resp, err := h.service.LoginUser(r.Context(), req)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, resp)
}

// AdminLogin handles POST /api/admin/auth/login
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}
	resp, err := h.service.LoginAdmin(r.Context(), req)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, resp)
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (*LoginRequest, bool) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return nil, false
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return nil, false
	}
	return &req, true
}
