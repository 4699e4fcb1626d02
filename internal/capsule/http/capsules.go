package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// CapsulesHandler serves the capsule endpoints.
type CapsulesHandler struct {
	CapsuleService *service.CapsuleService
}

// CapsuleResponse is the JSON shape of a capsule. ShareToken is only
// populated for the owner's own listings.
type CapsuleResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ImageURL   string    `json:"image_url,omitempty"`
	ShareToken string    `json:"share_token,omitempty"`
	UnlockAt   time.Time `json:"unlock_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func capsuleResponse(c domain.Capsule, includeShareToken bool) CapsuleResponse {
	resp := CapsuleResponse{
		ID:        c.ID,
		Title:     c.Title,
		Message:   c.Message,
		UnlockAt:  c.UnlockAt,
		CreatedAt: c.CreatedAt,
	}
	if c.ImageURL != nil {
		resp.ImageURL = *c.ImageURL
	}
	if includeShareToken {
		resp.ShareToken = c.ShareToken
	}
	return resp
}

// HandleAdd serves POST /v1/capsules/add.
func (h *CapsulesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, _ := httpx.AccountIDFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_form_body",
			ErrorDescription: "could not parse form body",
		})
		return
	}

	form := service.CapsuleForm{
		Title:    r.Form.Get("title"),
		Message:  r.Form.Get("message"),
		ImageURL: r.Form.Get("image_url"),
	}
	if raw := r.Form.Get("unlock_at"); raw != "" {
		unlockAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:  "validation_error",
				Errors: []string{"Invalid unlock date."},
			})
			return
		}
		form.UnlockAt = unlockAt
	}

	capsule, err := h.CapsuleService.Create(ctx, accountID, form)
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:  "validation_error",
				Errors: verrs,
			})
		default:
			log.Error("capsule creation failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, capsuleResponse(capsule, true))
}

// HandleList serves GET /v1/capsules/. With ?opened=true only capsules
// past their unlock time are returned.
func (h *CapsulesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, _ := httpx.AccountIDFromContext(ctx)

	var (
		capsules []domain.Capsule
		err      error
	)
	if r.URL.Query().Get("opened") == "true" {
		capsules, err = h.CapsuleService.ListOpened(ctx, accountID)
	} else {
		capsules, err = h.CapsuleService.ListMine(ctx, accountID)
	}
	if err != nil {
		log.Error("capsule listing failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error: "server_error",
		})
		return
	}

	resp := make([]CapsuleResponse, 0, len(capsules))
	for _, c := range capsules {
		resp = append(resp, capsuleResponse(c, true))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleShared serves GET /v1/capsules/{shareToken}. Anyone holding the
// link can read the capsule once it unlocks; before that the response
// reveals only that it is still sealed.
func (h *CapsulesHandler) HandleShared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	capsule, err := h.CapsuleService.GetShared(ctx, r.PathValue("shareToken"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
				Error: "not_found",
			})
		case errors.Is(err, service.ErrCapsuleSealed):
			httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
				Error:            "capsule_sealed",
				ErrorDescription: "this capsule has not unlocked yet",
			})
		default:
			log.Error("shared capsule lookup failed", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error: "server_error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, capsuleResponse(capsule, false))
}
