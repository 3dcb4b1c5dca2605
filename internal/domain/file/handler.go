package file

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
	"github.com/goldsave/goldsave-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func caller(r *http.Request) Caller {
	return Caller{
		UserID: middleware.GetUserID(r.Context()),
		Admin:  middleware.GetRole(r.Context()) == jwt.RoleAdmin,
	}
}

// UploadURL handles POST /files/upload-url
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.UploadURL(r.Context(), caller(r), &req)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, p)
}

// DownloadURL handles GET /files/download-url?key=
func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	p, err := h.service.DownloadURL(r.Context(), caller(r), key)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, p)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload-url", h.UploadURL)
	r.Get("/download-url", h.DownloadURL)
	return r
}
