package goldprice

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goldsave/goldsave-api/internal/pkg/dates"
	"github.com/goldsave/goldsave-api/internal/pkg/errorhandler"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
	"github.com/goldsave/goldsave-api/internal/pkg/validator"
)

const defaultHistoryDays = 30

type Handler struct {
	service *Service
	loc     *time.Location
	now     func() time.Time
}

func NewHandler(service *Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc, now: time.Now}
}

// Latest handles GET /gold-prices/latest
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Latest(r.Context())
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, p)
}

// List handles GET /gold-prices?from=&to=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	to := dates.On(h.now(), h.loc)
	from := to.AddDate(0, 0, -defaultHistoryDays)

	if v := r.URL.Query().Get("from"); v != "" {
		d, err := dates.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid from date. Use YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := dates.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid to date. Use YYYY-MM-DD")
			return
		}
		to = d
	}

	prices, err := h.service.List(r.Context(), from, to)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	if prices == nil {
		prices = []GoldPrice{}
	}
	response.OK(w, prices)
}

// SetPrice handles POST /api/admin/gold-prices
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	date, err := dates.Parse(req.Date)
	if err != nil {
		response.ValidationError(w, map[string]string{"date": "Invalid date. Use YYYY-MM-DD"})
		return
	}

	result, err := h.service.SetPrice(r.Context(), date, req.PricePerGram)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.Created(w, result)
}

// FillMissing handles POST /api/admin/gold-prices/fill-missing
func (h *Handler) FillMissing(w http.ResponseWriter, r *http.Request) {
	var req FillMissingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	from, errFrom := dates.Parse(req.From)
	to, errTo := dates.Parse(req.To)
	if errFrom != nil || errTo != nil {
		response.ValidationError(w, map[string]string{"from": "Invalid date range. Use YYYY-MM-DD"})
		return
	}

	filled, err := h.service.FillMissing(r.Context(), from, to)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"inserted": len(filled),
		"prices":   filled,
	})
}

// RerunBonus handles POST /api/admin/gold-prices/bonus
func (h *Handler) RerunBonus(w http.ResponseWriter, r *http.Request) {
	var req BonusRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	date, err := dates.Parse(req.Date)
	if err != nil {
		response.ValidationError(w, map[string]string{"date": "Invalid date. Use YYYY-MM-DD"})
		return
	}

	result, err := h.service.RerunBonus(r.Context(), date)
	if err != nil {
		errorhandler.Handle(w, r, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/latest", h.Latest)
	return r
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/latest", h.Latest)
	r.Post("/", h.SetPrice)
	r.Post("/fill-missing", h.FillMissing)
	r.Post("/bonus", h.RerunBonus)
	return r
}
