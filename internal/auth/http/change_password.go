package http

import (
	"encoding/json"
	"net/http"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

type ChangePasswordHandler struct {
	AuthService *service.AuthService
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ServeHTTP rotates the password of the authenticated user.
//
//	@Summary		Change the current user's password
//	@Description	Verifies the current password and sets a new one. All existing sessions, including this one, stop verifying; the user must log in again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		changePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	messageResponse			"Password changed, re-login required"
//	@Failure		401		{object}	httpx.ErrorResponse		"Wrong current password (with remaining attempts)"
//	@Failure		403		{object}	httpx.ErrorResponse		"Account blocked"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many attempts"
//	@Router			/v1/auth/change-password [post].
func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	err := h.AuthService.ChangePassword(r.Context(), service.ChangePasswordInput{
		UserID:          httpx.UserIDFromCtx(r.Context()),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "password changed, please log in again",
	})
}
