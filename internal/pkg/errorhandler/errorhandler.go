package errorhandler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/response"
)

// StatusFor maps an error kind to the HTTP status it is reported with.
func StatusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusinessRule:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindPersistence:
		if e.Code == apperr.CodeDuplicate {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Handle logs err and writes the matching error envelope.
// Server-side failures never leak their cause to the client.
func Handle(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logError(r, zerolog.ErrorLevel, http.StatusInternalServerError, "INTERNAL_ERROR", err)
		response.InternalError(w)
		return
	}

	status := StatusFor(e)
	if status >= http.StatusInternalServerError {
		logError(r, zerolog.ErrorLevel, status, e.Code, err)
		message := "An unexpected error occurred"
		if e.Kind == apperr.KindConfiguration {
			message = e.Message
		}
		response.Error(w, status, e.Code, message)
		return
	}

	logError(r, zerolog.WarnLevel, status, e.Code, err)
	response.ErrorWithDetails(w, status, e.Code, e.Message, e.Details)
}

func logError(r *http.Request, level zerolog.Level, status int, code string, err error) {
	zerolog.Ctx(r.Context()).WithLevel(level).
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("error_code", code).
		Int("status_code", status).
		Msg("Request error")
}
