package httpx

import "context"

type ctxKey string

const (
	// CtxKeyAccountID carries the authenticated account id once the session
	// middleware has resolved the request's session token.
	CtxKeyAccountID ctxKey = "account_id"
	// CtxKeySessionToken carries the raw session token for logout handling.
	CtxKeySessionToken ctxKey = "session_token"
)

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyAccountID).(string)
	return id, ok && id != ""
}

// SessionTokenFromContext returns the raw session token attached by the
// session middleware, if any.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(CtxKeySessionToken).(string)
	return tok, ok && tok != ""
}
