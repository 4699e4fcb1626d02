package http

import (
	"net/http"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// VerifyHandler serves GET /v1/auth/verify/{token}.
//
// It responds 200 with the same body whether or not the token matched
// anything, so the endpoint cannot be used to probe which tokens exist.
type VerifyHandler struct {
	AccountService *service.AccountService
}

// VerifyResponse is the fixed body the verification endpoint returns.
type VerifyResponse struct {
	Status string `json:"status"`
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.AccountService.VerifyEmail(ctx, r.PathValue("token")); err != nil {
		log.Error("email verification failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, VerifyResponse{Status: "ok"})
}
