package enrollment

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

// ListMine handles GET /api/v1/enrollments
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	if items == nil {
		items = []Detail{}
	}
	response.OK(w, items)
}

// GetMine handles GET /api/v1/enrollments/{id}
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	d, err := h.service.GetForUser(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, d)
}

// Enroll handles POST /api/admin/enrollments
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	resp, err := h.service.Enroll(r.Context(), &req)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.Created(w, resp)
}

// List handles GET /api/admin/enrollments?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if err := validator.ValidateVar(status, "enrollment_status"); err != nil {
		response.BadRequest(w, "Invalid status filter")
		return
	}
	page := request.Pagination(r)

	items, total, err := h.service.List(r.Context(), Status(status), page.Limit, page.Offset())
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.WithMeta(w, items, response.NewMeta(total, page.Page, page.Limit))
}

// Get handles GET /api/admin/enrollments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, d)
}

// Deposit handles POST /api/admin/enrollments/{id}/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	t, err := h.service.RecordDeposit(r.Context(), id, &req)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.Created(w, t)
}

// Withdraw handles POST /api/admin/enrollments/{id}/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	e, err := h.service.Withdraw(r.Context(), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, e)
}

// Certificate handles POST /api/admin/enrollments/{id}/certificate
func (h *Handler) Certificate(w http.ResponseWriter, r *http.Request) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return
	}
	var req CertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	e, err := h.service.MarkCertificateDelivered(r.Context(), id, req.Key)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, e)
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Enroll)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/deposits", h.Deposit)
	r.Post("/{id}/withdraw", h.Withdraw)
	r.Post("/{id}/certificate", h.Certificate)
	return r
}
