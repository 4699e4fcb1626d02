package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/pkg/cryptox"
	"github.com/orinotech/timecapsule/pkg/idx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

const (
	msgInvalidTitle    = "Invalid title."
	msgInvalidMessage  = "Invalid message."
	msgInvalidUnlockAt = "Invalid unlock date."

	capsuleTitleMaxLen   = 100
	capsuleMessageMaxLen = 4000
)

// CapsuleForm carries the fields for sealing a new capsule.
type CapsuleForm struct {
	Title    string
	Message  string
	ImageURL string
	UnlockAt time.Time
}

func (f *CapsuleForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Message = strings.TrimSpace(f.Message)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
}

func (f CapsuleForm) validate(now time.Time) ValidationErrors {
	var errs ValidationErrors
	if f.Title == "" || len(f.Title) > capsuleTitleMaxLen {
		errs = append(errs, msgInvalidTitle)
	}
	if f.Message == "" || len(f.Message) > capsuleMessageMaxLen {
		errs = append(errs, msgInvalidMessage)
	}
	if f.UnlockAt.IsZero() || !f.UnlockAt.After(now) {
		errs = append(errs, msgInvalidUnlockAt)
	}
	return errs
}

// CapsuleService owns sealing and opening time capsules.
type CapsuleService struct {
	Store store.Store
}

// Create seals a new capsule for the owner. The unlock time must be in
// the future. The returned capsule carries the share token the owner can
// hand out.
func (s *CapsuleService) Create(ctx context.Context, ownerID string, form CapsuleForm) (domain.Capsule, error) {
	log := slogx.FromContext(ctx)

	form.normalize()
	if errs := form.validate(time.Now()); len(errs) > 0 {
		return domain.Capsule{}, errs
	}

	shareToken, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.Capsule{}, err
	}

	capsule := domain.Capsule{
		ID:         idx.New().String(),
		OwnerID:    ownerID,
		Title:      form.Title,
		Message:    form.Message,
		ShareToken: shareToken,
		UnlockAt:   form.UnlockAt.UTC(),
	}
	if form.ImageURL != "" {
		capsule.ImageURL = &form.ImageURL
	}

	if err := s.Store.Capsules().CreateCapsule(ctx, capsule); err != nil {
		return domain.Capsule{}, err
	}

	log.Info("capsule sealed",
		slog.String("capsule_id", capsule.ID),
		slog.String("owner_id", capsule.OwnerID),
		slog.Time("unlock_at", capsule.UnlockAt),
	)

	// Re-read so the caller sees the stored timestamps.
	return s.Store.Capsules().GetCapsuleByShareToken(ctx, capsule.ShareToken)
}

// GetShared resolves a share token to its capsule. A capsule whose
// unlock time has not passed returns ErrCapsuleSealed without exposing
// any of its contents.
func (s *CapsuleService) GetShared(ctx context.Context, shareToken string) (domain.Capsule, error) {
	capsule, err := s.Store.Capsules().GetCapsuleByShareToken(ctx, shareToken)
	if err != nil {
		return domain.Capsule{}, err
	}
	if !capsule.Opened(time.Now()) {
		return domain.Capsule{}, ErrCapsuleSealed
	}
	return capsule, nil
}

// ListOpened returns the owner's capsules whose unlock time has passed,
// newest first.
func (s *CapsuleService) ListOpened(ctx context.Context, ownerID string) ([]domain.Capsule, error) {
	return s.Store.Capsules().ListOpenedByOwner(ctx, ownerID, time.Now().UTC())
}

// ListMine returns all of the owner's capsules, sealed ones included.
func (s *CapsuleService) ListMine(ctx context.Context, ownerID string) ([]domain.Capsule, error) {
	return s.Store.Capsules().ListByOwner(ctx, ownerID)
}
