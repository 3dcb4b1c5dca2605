package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

// Recover turns a handler panic into a 500 envelope and counts it.
// Upgraded connections (the price feed) are hijacked, so nothing is written back.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			metrics.HTTPPanicsTotal.Inc()
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Panic recovered")

			if r.Header.Get("Upgrade") != "" {
				return
			}
			response.InternalError(w)
		}()

		next.ServeHTTP(w, r)
	})
}
