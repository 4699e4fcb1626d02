// Package mail delivers the two transactional messages the account
// lifecycle needs: email verification and password reset. Delivery is
// fire-and-forget from the services' point of view; failures are logged
// here and never surface to the user flow.
package mail

import (
	"context"
	"log/slog"
)

// Dispatcher sends account lifecycle email.
type Dispatcher interface {
	// SendVerificationEmail delivers the confirm-your-email message. The
	// token is the raw capability string, not its fingerprint.
	SendVerificationEmail(ctx context.Context, email, username, token string) error

	// SendPasswordResetEmail delivers the reset-your-password message.
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// LogOnly is a Dispatcher for development and tests: it records that a
// message would have been sent. Tokens are logged at debug level only.
type LogOnly struct {
	Logger *slog.Logger
}

func (d *LogOnly) SendVerificationEmail(ctx context.Context, email, username, token string) error {
	d.Logger.Info("verification email suppressed (log-only mailer)", "email", email, "username", username)
	d.Logger.Debug("verification token", "token", token)
	return nil
}

func (d *LogOnly) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	d.Logger.Info("password reset email suppressed (log-only mailer)", "email", email)
	d.Logger.Debug("reset token", "token", token)
	return nil
}
