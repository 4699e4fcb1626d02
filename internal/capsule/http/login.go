package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login.
// Accepts application/x-www-form-urlencoded.
type LoginHandler struct {
	AccountService *service.AccountService
	SessionTTL     time.Duration
}

// LoginResponse carries the session token; the same token is also set
// as the session cookie for browser clients.
type LoginResponse struct {
	Token string `json:"token"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteJSON(w, http.StatusUnsupportedMediaType, httpx.ErrorResponse{
			Error:            "invalid_content_type",
			ErrorDescription: "expected application/x-www-form-urlencoded",
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_form_body",
			ErrorDescription: "could not parse form body",
		})
		return
	}

	token, err := h.AccountService.Login(ctx, r.Form.Get("email"), r.Form.Get("password"))
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:  "validation_error",
				Errors: verrs,
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			// One answer for unknown email, wrong password and
			// unverified account.
			httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "invalid email or password",
			})
		default:
			log.Error("login failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.SetSessionCookie(w, token, h.SessionTTL)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// LogoutHandler serves POST /v1/auth/logout. Always responds 204 and
// clears the cookie, whatever state the session was in.
type LogoutHandler struct {
	AccountService *service.AccountService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if token := httpx.SessionTokenFromRequest(r); token != "" {
		h.AccountService.Logout(r.Context(), token)
	}

	httpx.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
