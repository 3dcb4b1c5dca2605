package user

import (
	"fmt"
	"net/http"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Me handles GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetUserID(r.Context())
	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	if u == nil {
		errorhandler.Handle(w, r, fmt.Errorf("%w: %s", ErrUserNotFound, id))
		return
	}
	response.OK(w, u)
}
