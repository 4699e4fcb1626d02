package domain

import "time"

// Account is a registered user's durable identity and credential record.
//
// Verification and reset tokens are stored as SHA-256 fingerprints, never as
// the raw capability strings that go out by email.
type Account struct {
	ID              string
	Username        string     // display name, 3-35 chars
	Email           string     // unique, lowercase-normalized
	PasswordHash    string     // argon2 encoded, never the plaintext
	VerifiedAt      *time.Time // nil until the email is confirmed
	VerifyTokenHash *string    // pending verification token fingerprint (nullable)
	ResetTokenHash  *string    // pending password reset token fingerprint (nullable)
	ResetRequested  *time.Time // when the pending reset was requested (nullable)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the account has completed email verification.
func (a Account) Verified() bool { return a.VerifiedAt != nil }
