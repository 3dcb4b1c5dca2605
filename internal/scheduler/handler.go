package scheduler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

type Handler struct {
	scheduler *Scheduler
}

func NewHandler(s *Scheduler) *Handler {
	return &Handler{scheduler: s}
}

// List handles GET /api/admin/jobs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.scheduler.Names())
}

// Run handles POST /api/admin/jobs/{name}/run
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.scheduler.RunNow(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, report)
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{name}/run", h.Run)
	return r
}
