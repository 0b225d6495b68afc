package http

import (
	"net/http"
	"net/url"

	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/pkg/httpx"
	"github.com/courtsidehq/courtside/pkg/slogx"
)

// VerifyEmailHandler consumes the link from the verification email. It is a
// browser-facing GET, so outcomes become redirects to the UI's result page
// rather than JSON bodies.
type VerifyEmailHandler struct {
	AuthService *service.AuthService
	// ResultURL is the UI page that renders the outcome, e.g.
	// https://app.example.com/verify-email/result.
	ResultURL string
}

// ServeHTTP handles email verification links.
//
//	@Summary		Verify an email address
//	@Description	Consumes the emailed verification token and redirects to the UI result page with a machine-readable status code.
//	@Description	Possible statuses: verified, already-verified, rate-limited, missing-token, invalid-token, invalid-or-used, expired, blocked, server-error.
//	@Tags			Auth
//	@Param			token	query	string	false	"Verification token from the email link"
//	@Success		303		"Redirect to the UI result page"
//	@Router			/v1/auth/verify-email [get].
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.AuthService.VerifyEmail(r.Context(),
		r.URL.Query().Get("token"),
		httpx.IPKeyExtractor(r),
	)
	if err != nil {
		slogx.FromContext(r.Context()).Error("email verification failed", "error", err)
	}

	q := url.Values{"status": {res.Outcome}}
	if res.Email != "" {
		q.Set("email", res.Email)
	}

	httpx.NoCache(w)
	http.Redirect(w, r, h.ResultURL+"?"+q.Encode(), http.StatusSeeOther)
}
