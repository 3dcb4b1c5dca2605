package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/jwt"
	"github.com/goldsave/goldsave-api/internal/pkg/request"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

// OwnershipChecker confirms an enrollment belongs to a user.
type OwnershipChecker interface {
	CheckOwner(ctx context.Context, userID, enrollmentID uuid.UUID) error
}

type Handler struct {
	service *Service
	owners  OwnershipChecker
	now     func() time.Time
}

func NewHandler(service *Service, owners OwnershipChecker) *Handler {
	return &Handler{service: service, owners: owners, now: time.Now}
}

// enrollmentID reads {id} and, for users, enforces ownership. Admins see all.
func (h *Handler) enrollmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid enrollment ID")
		return uuid.Nil, false
	}
	if middleware.GetRole(r.Context()) != jwt.RoleAdmin {
		if err := h.owners.CheckOwner(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
			errorhandler.Handle(w, r, err)
			return uuid.Nil, false
		}
	}
	return id, true
}

// Summary handles GET /enrollments/{id}/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	sum, err := h.service.GetSummary(r.Context(), id)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, sum)
}

// List handles GET /enrollments/{id}/transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.enrollmentID(w, r)
	if !ok {
		return
	}
	page := request.Pagination(r)
	txs, total, err := h.service.List(r.Context(), id, page.Limit, page.Offset())
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.WithMeta(w, txs, response.NewMeta(total, page.Page, page.Limit))
}

// Export handles GET /api/v1/transactions/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	now := h.now()

	response.Attachment(w, "text/csv", "statement-"+now.Format("20060102")+".csv")

	if err := h.service.ExportCSV(r.Context(), userID, now, w); err != nil {
		w.Header().Del("Content-Disposition")
		errorhandler.Handle(w, r, err)
	}
}
