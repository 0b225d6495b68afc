package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/courtsidehq/courtside/pkg/slogx"
)

// Session is the verified identity attached to an authenticated request.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// SessionVerifier checks a bearer token and returns the session it
// represents. Implementations are expected to reject expired tokens and
// tokens issued before the user's last credential change.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

func AuthnMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			sess, err := v.Verify(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("session verify failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithSession(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithSession(ctx context.Context, s Session) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, s.UserID)
	ctx = context.WithValue(ctx, CtxKeyUserEmail, s.Email)
	ctx = context.WithValue(ctx, CtxKeyUserRole, s.Role)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
