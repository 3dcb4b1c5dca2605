package redemption

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/request"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
	"github.com/goldsave/goldsave-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Eligibility handles GET /enrollments/{id}/redemptions/eligibility
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	el, err := h.service.CheckEligibility(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, el)
}

// Create handles POST /enrollments/{id}/redemptions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	out, err := h.service.CreateRequest(r.Context(), middleware.GetUserID(r.Context()), id, req.Points)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.Created(w, out)
}

// ListMine handles GET /enrollments/{id}/redemptions
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	items, err := h.service.ListForUser(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	if items == nil {
		items = []Request{}
	}
	response.OK(w, items)
}

// List handles GET /api/admin/redemptions?status=&type=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if err := validator.ValidateVar(status, "redemption_status"); err != nil {
		response.BadRequest(w, "Invalid status filter")
		return
	}
	typ := r.URL.Query().Get("type")
	if typ != "" && typ != string(TypeBonus) && typ != string(TypeMaturity) {
		response.BadRequest(w, "Invalid type filter")
		return
	}
	page := request.Pagination(r)

	items, total, err := h.service.List(r.Context(), Status(status), Type(typ), page.Limit, page.Offset())
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.WithMeta(w, items, response.NewMeta(total, page.Page, page.Limit))
}

// Decide handles POST /api/admin/redemptions/{id}/decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	out, err := h.service.ApproveRedemption(r.Context(), id, middleware.GetUserID(r.Context()), req.Remarks, Status(req.Status))
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, out)
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{id}/decision", h.Decide)
	return r
}
