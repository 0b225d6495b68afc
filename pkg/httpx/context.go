package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyUserEmail ctxKey = "user_email"
	CtxKeyUserRole  ctxKey = "user_role"
)

// UserIDFromCtx returns the authenticated caller's user id, or "" when the
// request was not authenticated.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// UserEmailFromCtx returns the authenticated caller's email, or "".
func UserEmailFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserEmail).(string); ok {
		return v
	}
	return ""
}

// UserRoleFromCtx returns the authenticated caller's role name, or "".
func UserRoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserRole).(string); ok {
		return v
	}
	return ""
}
