package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/mail"
	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/pkg/cryptox"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// DefaultResetTokenTTL bounds how long a password reset link stays
// usable.
const DefaultResetTokenTTL = 1 * time.Hour

// PasswordResetService owns the forgot-password flow: issuing reset
// tokens by email and completing the reset.
type PasswordResetService struct {
	Store    store.Store
	Sessions *session.Registry
	Mail     mail.Dispatcher

	// TokenTTL is the reset token lifetime. Zero means DefaultResetTokenTTL.
	TokenTTL time.Duration
}

func (s *PasswordResetService) tokenTTL() time.Duration {
	if s.TokenTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return s.TokenTTL
}

// Request issues a reset token for the account with the given email and
// mails it out. When the email is unknown it does nothing and still
// returns nil, so the endpoint responds identically either way. A repeat
// request replaces any earlier token.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	email = NormalizeEmail(email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	if err := s.Store.Accounts().SetResetToken(ctx, account.ID, cryptox.FingerprintToken(token), time.Now().UTC()); err != nil {
		return err
	}

	log.Info("password reset requested", slog.String("account_id", account.ID))

	go func(ctx context.Context) {
		if err := s.Mail.SendPasswordResetEmail(ctx, account.Email, token); err != nil {
			log.Error("failed to send password reset email",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
	}(context.WithoutCancel(ctx))

	return nil
}

// Complete sets a new password for the account holding the reset token.
// The token is single use and expires after TokenTTL. On success every
// live session for the account is revoked, so a stolen session does not
// survive the reset.
func (s *PasswordResetService) Complete(ctx context.Context, token, password, confirm string) error {
	log := slogx.FromContext(ctx)

	var errs ValidationErrors
	if errs = validatePasswordPair(password, confirm, errs); len(errs) > 0 {
		return errs
	}

	if token == "" {
		return ErrResetTokenInvalid
	}

	account, err := s.Store.Accounts().GetAccountByResetTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset attempted with unknown token")
			return ErrResetTokenInvalid
		}
		return err
	}

	if account.ResetRequested == nil || time.Since(*account.ResetRequested) > s.tokenTTL() {
		if err := s.Store.Accounts().ClearResetToken(ctx, account.ID); err != nil {
			return err
		}
		log.Info("password reset attempted with expired token", slog.String("account_id", account.ID))
		return ErrResetTokenInvalid
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, passHash); err != nil {
			return err
		}
		return tx.Accounts().ClearResetToken(ctx, account.ID)
	})
	if err != nil {
		return err
	}

	revoked := s.Sessions.DeleteAccount(account.ID)

	log.Info("password reset completed",
		slog.String("account_id", account.ID),
		slog.Int("sessions_revoked", revoked),
	)
	return nil
}
