package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/goldsave/goldsave-api/internal/domain/auth"
	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/file"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/pricefeed"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/scheme"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/middleware"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	pkgresponse "github.com/goldsave/goldsave-api/internal/pkg/response"
	"github.com/goldsave/goldsave-api/internal/scheduler"
)

type mw = func(http.Handler) http.Handler

const version = "1.0.0"

// api bundles the handlers and guards the router is assembled from.
type api struct {
	userAuth   mw
	adminAuth  mw
	loginLimit mw
	health     http.HandlerFunc

	auth        *auth.Handler
	users       *user.Handler
	schemes     *scheme.Handler
	settings    *setting.Handler
	enrollments *enrollment.Handler
	ledger      *ledger.Handler
	redemptions *redemption.Handler
	prices      *goldprice.Handler
	files       *file.Handler
	jobs        *scheduler.Handler
	feed        *pricefeed.Handler
}

// memberEnrollmentRoutes are the per-enrollment views a member reaches under /enrollments.
type memberEnrollmentRoutes struct {
	list, get, summary, transactions http.HandlerFunc
	eligibility, redeem, redemptions http.HandlerFunc
}

func mountMemberEnrollmentRoutes(r chi.Router, auth mw, h memberEnrollmentRoutes) {
	r.Route("/enrollments", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/summary", h.summary)
		r.Get("/{id}/transactions", h.transactions)
		r.Get("/{id}/redemptions/eligibility", h.eligibility)
		r.Post("/{id}/redemptions", h.redeem)
		r.Get("/{id}/redemptions", h.redemptions)
	})
}

func (a *api) router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(allowedOrigins))

	// Websocket upgrade must not be wrapped by Compress
	r.Get("/ws/prices", a.feed.Serve)

	r.Get("/health", a.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.With(a.loginLimit).Post("/auth/login", a.auth.UserLogin)

		r.With(a.userAuth).Get("/me", a.users.Me)
		r.With(a.userAuth).Get("/transactions/export", a.ledger.Export)

		mountMemberEnrollmentRoutes(r, a.userAuth, memberEnrollmentRoutes{
			list:         a.enrollments.ListMine,
			get:          a.enrollments.GetMine,
			summary:      a.ledger.Summary,
			transactions: a.ledger.List,
			eligibility:  a.redemptions.Eligibility,
			redeem:       a.redemptions.Create,
			redemptions:  a.redemptions.ListMine,
		})

		r.Mount("/schemes", a.schemes.Routes())
		r.Mount("/gold-prices", a.prices.Routes())

		r.Route("/files", func(r chi.Router) {
			r.Use(a.userAuth)
			r.Mount("/", a.files.Routes())
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.With(a.loginLimit).Post("/auth/login", a.auth.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.adminAuth)

			enrollments := a.enrollments.AdminRoutes()
			enrollments.Get("/{id}/summary", a.ledger.Summary)
			enrollments.Get("/{id}/transactions", a.ledger.List)

			r.Mount("/settings", a.settings.AdminRoutes())
			r.Mount("/schemes", a.schemes.AdminRoutes())
			r.Mount("/gold-prices", a.prices.AdminRoutes())
			r.Mount("/enrollments", enrollments)
			r.Mount("/redemptions", a.redemptions.AdminRoutes())
			r.Mount("/jobs", a.jobs.AdminRoutes())
			r.Mount("/files", a.files.Routes())
		})
	})

	return r
}

// healthHandler answers 503 when a configured store is unreachable so the load
// balancer drains the instance.
func healthHandler(db database.Pinger, rdb *redis.Client) http.HandlerFunc {
	var universal redis.UniversalClient
	if rdb != nil {
		universal = rdb
	}
	return func(w http.ResponseWriter, r *http.Request) {
		checks, ok := database.Health(r.Context(), db, universal)
		body := map[string]any{"status": "ok", "version": version, "checks": checks}
		if !ok {
			body["status"] = "degraded"
			pkgresponse.JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		pkgresponse.OK(w, body)
	}
}
