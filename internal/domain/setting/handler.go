package setting

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

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

// List handles GET /api/admin/settings
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.List(r.Context())
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, settings)
}

// Get handles GET /api/admin/settings/{key}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, st)
}

// Put handles PUT /api/admin/settings/{key}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	st, err := h.service.Upsert(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, st)
}

// Delete handles DELETE /api/admin/settings/{key}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{key}", h.Get)
	r.Put("/{key}", h.Put)
	r.Delete("/{key}", h.Delete)
	return r
}
