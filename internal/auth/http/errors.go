package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/httpx"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

// writeServiceError maps a service-layer failure onto the wire. The mapping
// is the single place where flow errors meet HTTP status codes, so every
// endpoint fails the same way for the same reason.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		limited   *service.RateLimitedError
		remaining *service.AttemptsRemainingError
		invalid   *service.ValidationError
	)

	switch {
	case errors.As(err, &limited):
		retryAfter := int(limited.RetryAfter.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorResponse{
			Error:             "rate_limited",
			ErrorDescription:  limited.Error(),
			RetryAfterSeconds: retryAfter,
		})

	case errors.As(err, &remaining):
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error:             "invalid_credentials",
			ErrorDescription:  remaining.Error(),
			RemainingAttempts: &remaining.Remaining,
		})

	case errors.As(err, &invalid):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "validation_failed",
			ErrorDescription: invalid.Error(),
			Fields:           invalid.Fields,
		})

	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error:            "invalid_credentials",
			ErrorDescription: service.ErrInvalidCredentials.Error(),
		})

	case errors.Is(err, service.ErrAccountBlocked):
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
			Error:            "account_blocked",
			ErrorDescription: service.ErrAccountBlocked.Error(),
		})

	case errors.Is(err, service.ErrAccountInactive):
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
			Error:            "account_inactive",
			ErrorDescription: service.ErrAccountInactive.Error(),
		})

	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
			Error:            "email_not_verified",
			ErrorDescription: service.ErrEmailNotVerified.Error(),
		})

	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_token",
			ErrorDescription: service.ErrInvalidToken.Error(),
		})

	case errors.Is(err, service.ErrTokenExpired):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "token_expired",
			ErrorDescription: service.ErrTokenExpired.Error(),
		})

	case errors.Is(err, service.ErrSamePassword):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "password_reuse",
			ErrorDescription: service.ErrSamePassword.Error(),
		})

	case errors.Is(err, service.ErrAccountExists):
		httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
			Error:            "account_exists",
			ErrorDescription: service.ErrAccountExists.Error(),
		})

	case errors.Is(err, store.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "resource not found",
		})

	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "an internal error occurred",
		})
	}
}

func writeBadJSON(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
		Error:            "invalid_request",
		ErrorDescription: "request body must be valid JSON",
	})
}

func writeForbidden(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
		Error:            "forbidden",
		ErrorDescription: "you are not allowed to perform this action",
	})
}
