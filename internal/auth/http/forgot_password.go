package http

import (
	"encoding/json"
	"net/http"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

type ForgotPasswordHandler struct {
	AuthService *service.AuthService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ServeHTTP handles password reset requests.
//
//	@Summary		Request a password reset
//	@Description	Emails a reset link if an account exists. The response is identical whether or not the address is registered.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		forgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	messageResponse			"Reset email sent if the account exists"
//	@Failure		400		{object}	httpx.ErrorResponse		"Validation failed"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many requests"
//	@Router			/v1/auth/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email, httpx.IPKeyExtractor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "if that email is registered, a reset link has been sent",
	})
}
