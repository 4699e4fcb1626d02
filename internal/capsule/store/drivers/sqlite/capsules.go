package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
)

type capsulesRepo struct {
	db dbtx
}

const capsuleColumns = `id, owner_id, title, message, image_url, share_token, unlock_at, created_at`

func scanCapsule(scan func(dest ...any) error) (domain.Capsule, error) {
	var (
		c        domain.Capsule
		imageURL sql.NullString
	)
	err := scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Message,
		&imageURL,
		&c.ShareToken,
		&c.UnlockAt,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Capsule{}, err
	}
	c.ImageURL = mapNullStringPtr(imageURL)
	return c, nil
}

func (r *capsulesRepo) CreateCapsule(ctx context.Context, c domain.Capsule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO capsules (id, owner_id, title, message, image_url, share_token, unlock_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		c.ID,
		c.OwnerID,
		c.Title,
		c.Message,
		mapOptionalString(c.ImageURL),
		c.ShareToken,
		c.UnlockAt.UTC(),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *capsulesRepo) GetCapsuleByShareToken(ctx context.Context, token string) (domain.Capsule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules WHERE share_token = ?`, token)
	c, err := scanCapsule(row.Scan)
	if err != nil {
		return domain.Capsule{}, mapNotFound(err)
	}
	return c, nil
}

func (r *capsulesRepo) ListOpenedByOwner(ctx context.Context, ownerID string, now time.Time) ([]domain.Capsule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+capsuleColumns+` FROM capsules
		WHERE owner_id = ? AND unlock_at <= ?
		ORDER BY unlock_at DESC`, ownerID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCapsules(rows)
}

func (r *capsulesRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Capsule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+capsuleColumns+` FROM capsules
		WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCapsules(rows)
}

func collectCapsules(rows *sql.Rows) ([]domain.Capsule, error) {
	var out []domain.Capsule
	for rows.Next() {
		c, err := scanCapsule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
