package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Callback optionally overrides the post-login redirect target.
	Callback string `json:"callback,omitempty"`
}

type loginResponse struct {
	Token      string      `json:"token"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	RedirectTo string      `json:"redirectTo"`
	User       userPayload `json:"user"`
}

// ServeHTTP handles email/password login.
//
//	@Summary		Log in
//	@Description	Authenticates an email/password pair and returns a session token plus the redirect target.
//	@Description	Failed attempts count toward a lockout; the response carries the remaining attempts while the window has room.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest		true	"Credentials"
//	@Success		200		{object}	loginResponse		"Session token and redirect target"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid credentials (with remaining attempts)"
//	@Failure		403		{object}	httpx.ErrorResponse	"Account blocked, inactive, or unverified"
//	@Failure		429		{object}	httpx.ErrorResponse	"Locked out (with retry-after seconds)"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Callback: req.Callback,
		IP:       httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:      res.Token,
		ExpiresAt:  res.ExpiresAt,
		RedirectTo: res.RedirectTo,
		User:       toUserPayload(res.User),
	})
}
