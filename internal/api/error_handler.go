package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Maps vendor failures by class: terminal upstream faults render 502,
//     transient ones 503 so clients know a retry can help.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, domain.ErrNotPrimary):
		return http.StatusBadRequest, "operation requires a primary account"
	case errors.Is(err, domain.ErrNotExternal):
		return http.StatusBadRequest, "operation requires an external account"
	case errors.Is(err, domain.ErrServiceNotImplemented):
		return http.StatusNotImplemented, "operation not supported for this service"
	case errors.Is(err, domain.ErrServiceUnauthenticated), errors.Is(err, domain.ErrSessionExpired):
		return http.StatusBadGateway, "vendor session could not be established"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	}

	// Vendor failures keep their class but never leak vendor payloads.
	var ve *domain.VendorError
	if errors.As(err, &ve) {
		log.Warn().
			Err(err).
			Str("service", ve.Service.String()).
			Str("operation", ve.Op).
			Msg("vendor error surfaced to client")
		if ve.Class == domain.VendorTransient {
			return http.StatusServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", ve.Service)
		}
		return http.StatusBadGateway, fmt.Sprintf("%s request failed", ve.Service)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
