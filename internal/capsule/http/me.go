package http

import (
	"net/http"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// MeHandler serves GET /v1/auth/me for the authenticated account.
type MeHandler struct {
	AccountService *service.AccountService
}

// MeResponse describes the authenticated account.
type MeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		// RequireSession runs first; this only triggers on a miswired route.
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "not_authenticated",
		})
		return
	}

	account, err := h.AccountService.GetAccountByID(ctx, accountID)
	if err != nil {
		log.Error("failed to load account", "account_id", accountID, "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, MeResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
	})
}
