package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authDomain "curema-crm/internal/domain/auth"
)

// RefreshTokenRepo 提供 refresh token 的 Postgres 存取。
type RefreshTokenRepo struct {
	db *sql.DB
}

// NewRefreshTokenRepo 建立 RefreshTokenRepo。
func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

const tokenColumns = `token, user_id, created_at, expiry_date, revoked, revoked_at, ip_address, device_info`

// Insert 寫入新 token。
func (r *RefreshTokenRepo) Insert(ctx context.Context, tok authDomain.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (token, user_id, created_at, expiry_date, revoked, ip_address, device_info)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.db.ExecContext(ctx, q,
		tok.Token,
		tok.UserID,
		tok.CreatedAt,
		tok.ExpiryDate,
		tok.Revoked,
		tok.IPAddress,
		tok.DeviceInfo,
	)
	return err
}

// FindByToken 依 token 值查詢，不分已撤銷與否；找不到時回傳 ErrTokenNotFound。
func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (authDomain.RefreshToken, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM refresh_tokens
WHERE token = $1
LIMIT 1;
`
	var tok authDomain.RefreshToken
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, token).Scan(
		&tok.Token,
		&tok.UserID,
		&tok.CreatedAt,
		&tok.ExpiryDate,
		&tok.Revoked,
		&revokedAt,
		&tok.IPAddress,
		&tok.DeviceInfo,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authDomain.RefreshToken{}, authDomain.ErrTokenNotFound
		}
		return authDomain.RefreshToken{}, err
	}
	if revokedAt.Valid {
		tok.RevokedAt = &revokedAt.Time
	}
	return tok, nil
}

// FindActiveByUser 取使用者未撤銷的 token。
func (r *RefreshTokenRepo) FindActiveByUser(ctx context.Context, userID string) ([]authDomain.RefreshToken, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM refresh_tokens
WHERE user_id = $1 AND revoked = FALSE
ORDER BY created_at;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []authDomain.RefreshToken
	for rows.Next() {
		var tok authDomain.RefreshToken
		var revokedAt sql.NullTime
		if err := rows.Scan(
			&tok.Token,
			&tok.UserID,
			&tok.CreatedAt,
			&tok.ExpiryDate,
			&tok.Revoked,
			&revokedAt,
			&tok.IPAddress,
			&tok.DeviceInfo,
		); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			tok.RevokedAt = &revokedAt.Time
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

// CountActiveByUser 計算使用者未撤銷且未過期的 token 數。
func (r *RefreshTokenRepo) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	const q = `SELECT count(*) FROM refresh_tokens WHERE user_id = $1 AND revoked = FALSE AND expiry_date > $2;`
	var count int
	if err := r.db.QueryRowContext(ctx, q, userID, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete 硬刪除單一 token 列。
func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) error {
	const q = `DELETE FROM refresh_tokens WHERE token = $1;`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}

// Revoke 撤銷單一 token；已撤銷的列不再改動 revoked_at。
func (r *RefreshTokenRepo) Revoke(ctx context.Context, token string, at time.Time) error {
	const q = `
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE token = $1 AND revoked = FALSE;
`
	_, err := r.db.ExecContext(ctx, q, token, at)
	return err
}

// RevokeAllByUser 撤銷使用者的全部 token。
func (r *RefreshTokenRepo) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	const q = `
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE user_id = $1 AND revoked = FALSE;
`
	_, err := r.db.ExecContext(ctx, q, userID, at)
	return err
}

// DeleteExpiredOrRevoked 刪除已過期或已撤銷的 token 列，回傳刪除筆數。
func (r *RefreshTokenRepo) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expiry_date <= $1 OR revoked = TRUE;`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
