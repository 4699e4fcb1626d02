package httpx

import (
	"context"
	"net/http"
	"time"
)

// SessionCookieName matches the cookie the browser front-end sends.
const SessionCookieName = "session"

// SessionResolver resolves an opaque session token to an account id.
// The in-memory session registry satisfies this.
type SessionResolver interface {
	Resolve(token string) (accountID string, ok bool)
}

// SessionTokenFromRequest extracts the session token from the request's
// session cookie. Returns "" when no cookie is present.
func SessionTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie attaches the session token to the response. Secure is
// left to the deployment's TLS terminator; HttpOnly keeps the token away
// from page scripts.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// SessionMiddleware resolves the request's session cookie and, when valid,
// injects the account id and raw token into the request context. It never
// rejects requests itself; pair it with RequireSession for protected routes.
func SessionMiddleware(resolver SessionResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionTokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxKeySessionToken, token)
			if accountID, ok := resolver.Resolve(token); ok {
				ctx = context.WithValue(ctx, CtxKeyAccountID, accountID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests whose context has no authenticated
// account with a generic 401. The message never hints at why the session
// was rejected.
func RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := AccountIDFromContext(r.Context()); !ok {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:            "not_authenticated",
					ErrorDescription: "Authentication required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
