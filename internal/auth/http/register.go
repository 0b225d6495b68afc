package http

import (
	"encoding/json"
	"net/http"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

type RegisterHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirmPassword"`
	PhoneNumber     string         `json:"phoneNumber"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	AlternateNumber string         `json:"alternateNumber,omitempty"`
	Address         addressPayload `json:"address"`
}

type addressPayload struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

type registerResponse struct {
	Message string      `json:"message"`
	User    userPayload `json:"user"`
}

// ServeHTTP handles new account registration.
//
//	@Summary		Register a new account
//	@Description	Creates an unverified account and emails a verification link. The account stays inactive until the link is followed.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest			true	"Registration details"
//	@Success		201		{object}	registerResponse		"Account created, verification email sent"
//	@Failure		400		{object}	httpx.ErrorResponse		"Validation failed"
//	@Failure		409		{object}	httpx.ErrorResponse		"An account with these details already exists"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many registration attempts"
//	@Router			/v1/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	u, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		PhoneNumber:     req.PhoneNumber,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		AlternateNumber: req.AlternateNumber,
		Address: domain.Address{
			Street: req.Address.Street,
			City:   req.Address.City,
			State:  req.Address.State,
			Zip:    req.Address.Zip,
		},
		IP: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "registration successful, check your email to verify your account",
		User:    toUserPayload(u),
	})
}
