package http

import (
	"encoding/json"
	"net/http"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

type ResetPasswordHandler struct {
	AuthService *service.AuthService
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ServeHTTP completes a password reset with an emailed token.
//
//	@Summary		Reset a password
//	@Description	Consumes a reset token and sets the new password. The token clear and the password update are one transaction.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		resetPasswordRequest	true	"Token and new password"
//	@Success		200		{object}	messageResponse			"Password updated"
//	@Failure		400		{object}	httpx.ErrorResponse		"Invalid/expired token, validation failure, or password reuse"
//	@Failure		403		{object}	httpx.ErrorResponse		"Account blocked"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many attempts"
//	@Router			/v1/auth/reset-password [post].
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	err := h.AuthService.ResetPassword(r.Context(), service.ResetPasswordInput{
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		IP:              httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "password updated, you can log in with your new password",
	})
}
