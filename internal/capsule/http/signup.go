package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// SignupHandler serves POST /v1/auth/signup.
// Accepts application/x-www-form-urlencoded.
type SignupHandler struct {
	AccountService *service.AccountService
}

// SignupResponse is the body returned on successful registration.
type SignupResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	form := service.RegisterForm{
		Username:        r.Form.Get("username"),
		Email:           r.Form.Get("email"),
		Password:        r.Form.Get("password"),
		ConfirmPassword: r.Form.Get("confirm_password"),
	}

	account, err := h.AccountService.Register(ctx, form)
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:  "validation_error",
				Errors: verrs,
			})
		case errors.Is(err, service.ErrDuplicateEmail):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error:            "duplicate_email",
				ErrorDescription: "an account with that email already exists",
			})
		default:
			log.Error("signup failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, SignupResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
	})
}
