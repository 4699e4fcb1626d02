package store

import (
	"context"
	"errors"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Accounts() Accounts
	Capsules() Capsules

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is already registered; the
	// UNIQUE index on email is the arbiter, so concurrent registrations
	// cannot both win.
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail is used during login and reset requests. The email
	// must already be lowercase-normalized.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// ExistsByEmail reports whether an account with the email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetAccountByVerifyTokenHash looks up the account holding a pending
	// verification token fingerprint.
	GetAccountByVerifyTokenHash(ctx context.Context, hash string) (domain.Account, error)

	// GetAccountByResetTokenHash looks up the account holding a pending
	// reset token fingerprint.
	GetAccountByResetTokenHash(ctx context.Context, hash string) (domain.Account, error)

	// MarkVerified sets verified_at and clears the verification token
	// (single use), bumping updated_at.
	MarkVerified(ctx context.Context, accountID string) error

	// SetResetToken stores a reset token fingerprint and its request time,
	// replacing any pending one.
	SetResetToken(ctx context.Context, accountID string, hash string, requestedAt time.Time) error

	// ClearResetToken removes a pending reset token.
	ClearResetToken(ctx context.Context, accountID string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error

	// DeleteUnverifiedBefore removes accounts that never verified and were
	// created before cutoff. Housekeeping.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ClearResetTokensBefore drops reset tokens requested before cutoff.
	// Housekeeping.
	ClearResetTokensBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Capsules interface {
	// CreateCapsule inserts a new capsule (id and share token minted by the app).
	CreateCapsule(ctx context.Context, c domain.Capsule) error

	// GetCapsuleByShareToken fetches a capsule by its public link token.
	GetCapsuleByShareToken(ctx context.Context, token string) (domain.Capsule, error)

	// ListOpenedByOwner returns the owner's capsules whose unlock time has
	// passed, newest first.
	ListOpenedByOwner(ctx context.Context, ownerID string, now time.Time) ([]domain.Capsule, error)

	// ListByOwner returns all of the owner's capsules, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Capsule, error)
}
