package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, username, email, password_hash, verified_at,
	verify_token_hash, reset_token_hash, reset_requested_at, created_at, updated_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a              domain.Account
		verifiedAt     sql.NullTime
		verifyToken    sql.NullString
		resetToken     sql.NullString
		resetRequested sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&verifiedAt,
		&verifyToken,
		&resetToken,
		&resetRequested,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.VerifiedAt = mapNullTimePtr(verifiedAt)
	a.VerifyTokenHash = mapNullStringPtr(verifyToken)
	a.ResetTokenHash = mapNullStringPtr(resetToken)
	a.ResetRequested = mapNullTimePtr(resetRequested)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, verified_at,
			verify_token_hash, reset_token_hash, reset_requested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		a.ID,
		a.Username,
		a.Email,
		a.PasswordHash,
		mapOptionalTime(a.VerifiedAt),
		mapOptionalString(a.VerifyTokenHash),
		mapOptionalString(a.ResetTokenHash),
		mapOptionalTime(a.ResetRequested),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE email = ?`, email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *accountsRepo) GetAccountByVerifyTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE verify_token_hash = ?`, hash)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByResetTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = ?`, hash)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) MarkVerified(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET verified_at = CURRENT_TIMESTAMP,
			verify_token_hash = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, accountID)
	return err
}

func (r *accountsRepo) SetResetToken(ctx context.Context, accountID string, hash string, requestedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET reset_token_hash = ?,
			reset_requested_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, hash, requestedAt.UTC(), accountID)
	return err
}

func (r *accountsRepo) ClearResetToken(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET reset_token_hash = NULL,
			reset_requested_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, accountID)
	return err
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, newHash, accountID)
	return err
}

func (r *accountsRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM accounts
		WHERE verified_at IS NULL AND datetime(created_at) < datetime(?)`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *accountsRepo) ClearResetTokensBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET reset_token_hash = NULL,
			reset_requested_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE reset_token_hash IS NOT NULL AND datetime(reset_requested_at) < datetime(?)`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
