package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ability"
	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/httpx"
)

// UsersHandler serves the ability-guarded user management endpoints. Every
// request builds the caller's ability set from the session and asks it before
// touching anything; the handlers never assume a role implies a permission.
type UsersHandler struct {
	UserService *service.UserService
	Limiter     ratelimit.Limiter
}

type userPayload struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	PhoneNumber     string         `json:"phoneNumber"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	AlternateNumber string         `json:"alternateNumber,omitempty"`
	Address         addressPayload `json:"address"`
	Role            string         `json:"role"`
	EmailVerifiedAt *time.Time     `json:"emailVerifiedAt,omitempty"`
	IsActive        bool           `json:"isActive"`
	IsBlocked       bool           `json:"isBlocked"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func toUserPayload(u domain.User) userPayload {
	return userPayload{
		ID:              u.ID,
		Email:           u.Email,
		PhoneNumber:     u.PhoneNumber,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		AlternateNumber: u.AlternateNumber,
		Address: addressPayload{
			Street: u.Address.Street,
			City:   u.Address.City,
			State:  u.Address.State,
			Zip:    u.Address.Zip,
		},
		Role:            string(u.Role),
		EmailVerifiedAt: u.EmailVerifiedAt,
		IsActive:        u.IsActive,
		IsBlocked:       u.IsBlocked,
		CreatedAt:       u.CreatedAt,
	}
}

func callerAbility(r *http.Request) *ability.Ability {
	ctx := r.Context()
	return ability.New(
		domain.ParseRole(httpx.UserRoleFromCtx(ctx)),
		httpx.UserIDFromCtx(ctx),
	)
}

// HandleList lists all users.
//
//	@Summary		List users
//	@Description	Returns every user, newest first. Requires read access on the User subject type, which self-scoped roles do not have.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		userPayload
//	@Failure		403	{object}	httpx.ErrorResponse	"Caller may not list users"
//	@Failure		429	{object}	httpx.ErrorResponse	"Listing rate exceeded"
//	@Router			/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if callerAbility(r).Cannot(ability.ActionRead, ability.SubjectUser) {
		writeForbidden(w)
		return
	}

	key := ratelimit.Key("admin-list", httpx.UserIDFromCtx(ctx))
	res, err := h.Limiter.Check(ctx, key, ratelimit.PolicyAdminList)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !res.Allowed {
		writeServiceError(w, r, &service.RateLimitedError{RetryAfter: res.RetryAfter})
		return
	}
	if err := h.Limiter.Increment(ctx, key, ratelimit.PolicyAdminList); err != nil {
		writeServiceError(w, r, err)
		return
	}

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, toUserPayload(u))
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// HandleGet fetches one user.
//
//	@Summary		Get a user
//	@Description	Returns a single user. Regular users can only fetch themselves.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	userPayload
//	@Failure		403	{object}	httpx.ErrorResponse	"Caller may not read this user"
//	@Failure		404	{object}	httpx.ErrorResponse	"No such user"
//	@Router			/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if callerAbility(r).Cannot(ability.ActionRead, u) {
		writeForbidden(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPayload(u))
}

type updateUserRequest struct {
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	AlternateNumber *string `json:"alternateNumber,omitempty"`
	Address         *struct {
		Street *string `json:"street,omitempty"`
		City   *string `json:"city,omitempty"`
		State  *string `json:"state,omitempty"`
		Zip    *string `json:"zip,omitempty"`
	} `json:"address,omitempty"`
	Role *string `json:"role,omitempty"`
}

// fields returns the ability field names present in the patch.
func (req updateUserRequest) fields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("firstName", req.FirstName != nil)
	add("lastName", req.LastName != nil)
	add("phoneNumber", req.PhoneNumber != nil)
	add("alternateNumber", req.AlternateNumber != nil)
	add("address", req.Address != nil)
	add("role", req.Role != nil)
	return fields
}

// HandleUpdate applies a partial update to a user.
//
//	@Summary		Update a user
//	@Description	Applies a partial update. Every field in the patch is checked against the caller's ability individually; the role field is reserved to super admins acting on non-super-admin targets.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User id"
//	@Param			request	body		updateUserRequest	true	"Fields to change"
//	@Success		200		{object}	userPayload
//	@Failure		403		{object}	httpx.ErrorResponse	"A patched field is not allowed for this caller/target"
//	@Failure		404		{object}	httpx.ErrorResponse	"No such user"
//	@Router			/v1/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	target, err := h.UserService.GetUserByID(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	fields := req.fields()
	if len(fields) == 0 {
		httpx.WriteJSON(w, http.StatusOK, toUserPayload(target))
		return
	}

	// Per-field checks against the fetched target, so instance-conditioned
	// rules (self scope, super-admin protection) see the real record.
	if callerAbility(r).Cannot(ability.ActionUpdate, target, fields...) {
		writeForbidden(w)
		return
	}

	patch := store.ProfilePatch{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PhoneNumber:     req.PhoneNumber,
		AlternateNumber: req.AlternateNumber,
	}
	if req.Address != nil {
		patch.Street = req.Address.Street
		patch.City = req.Address.City
		patch.State = req.Address.State
		patch.Zip = req.Address.Zip
	}

	if patch != (store.ProfilePatch{}) {
		if err := h.UserService.UpdateProfile(ctx, target.ID, patch); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	if req.Role != nil {
		if err := h.UserService.UpdateRole(ctx, target.ID, *req.Role); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	updated, err := h.UserService.GetUserByID(ctx, target.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserPayload(updated))
}

// HandleDelete removes a user.
//
//	@Summary		Delete a user
//	@Description	Removes an account. Only super admins may delete, and never another super admin.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User id"
//	@Success		204	"Deleted"
//	@Failure		403	{object}	httpx.ErrorResponse	"Caller may not delete this user"
//	@Failure		404	{object}	httpx.ErrorResponse	"No such user"
//	@Router			/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := h.UserService.GetUserByID(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if callerAbility(r).Cannot(ability.ActionDelete, target) {
		writeForbidden(w)
		return
	}

	if err := h.UserService.DeleteUser(ctx, target.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
