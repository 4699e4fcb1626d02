package service

import "errors"

var (
	// ErrDuplicateEmail is returned when registration collides with an
	// existing account on the same email.
	ErrDuplicateEmail = errors.New("an account with that email already exists")

	// ErrInvalidCredentials covers every login failure past validation:
	// unknown email, wrong password, unverified account. Callers must not
	// distinguish between them.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrResetTokenInvalid is returned when a password reset token is
	// unknown, already used, or expired.
	ErrResetTokenInvalid = errors.New("password reset token is invalid or expired")

	// ErrCapsuleSealed is returned when a capsule is requested before its
	// unlock time.
	ErrCapsuleSealed = errors.New("capsule is still sealed")
)
