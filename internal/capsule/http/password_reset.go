package http

import (
	"errors"
	"net/http"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// ForgotPasswordHandler serves POST /v1/auth/password/forgot.
//
// The response is the same whether or not the email belongs to an
// account, so the endpoint cannot be used to enumerate addresses.
type ForgotPasswordHandler struct {
	PasswordResetService *service.PasswordResetService
}

// ForgotPasswordResponse is the fixed body the forgot endpoint returns.
type ForgotPasswordResponse struct {
	Status string `json:"status"`
}

func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_form_body",
			ErrorDescription: "could not parse form body",
		})
		return
	}

	if err := h.PasswordResetService.Request(ctx, r.Form.Get("email")); err != nil {
		log.Error("password reset request failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ForgotPasswordResponse{Status: "ok"})
}

// ResetPasswordHandler serves POST /v1/auth/password/reset.
type ResetPasswordHandler struct {
	PasswordResetService *service.PasswordResetService
}

// ResetPasswordResponse is returned when the password was changed.
type ResetPasswordResponse struct {
	Status string `json:"status"`
}

func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_form_body",
			ErrorDescription: "could not parse form body",
		})
		return
	}

	err := h.PasswordResetService.Complete(ctx,
		r.Form.Get("token"),
		r.Form.Get("password"),
		r.Form.Get("confirm_password"),
	)
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:  "validation_error",
				Errors: verrs,
			})
		case errors.Is(err, service.ErrResetTokenInvalid):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "password reset link is invalid or expired",
			})
		default:
			log.Error("password reset failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ResetPasswordResponse{Status: "ok"})
}
