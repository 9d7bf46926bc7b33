package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authDomain "curema-crm/internal/domain/auth"
)

// SessionRepo 提供 server-side session 的 Postgres 存取。
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo 建立 SessionRepo。
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `session_id, user_id, ip_address, user_agent, device_info, created_at, last_accessed_at, expires_at, is_active`

// Insert 寫入新 session。
func (r *SessionRepo) Insert(ctx context.Context, sess authDomain.Session) error {
	const q = `
INSERT INTO user_sessions (session_id, user_id, ip_address, user_agent, device_info, created_at, last_accessed_at, expires_at, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.db.ExecContext(ctx, q,
		sess.SessionID,
		sess.UserID,
		sess.IPAddress,
		sess.UserAgent,
		sess.DeviceInfo,
		sess.CreatedAt,
		sess.LastAccessedAt,
		sess.ExpiresAt,
		sess.Active,
	)
	return err
}

// FindByID 依 session id 查詢；找不到時回傳 ErrSessionInvalid。
func (r *SessionRepo) FindByID(ctx context.Context, sessionID string) (authDomain.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM user_sessions
WHERE session_id = $1
LIMIT 1;
`
	var sess authDomain.Session
	err := r.db.QueryRowContext(ctx, q, sessionID).Scan(
		&sess.SessionID,
		&sess.UserID,
		&sess.IPAddress,
		&sess.UserAgent,
		&sess.DeviceInfo,
		&sess.CreatedAt,
		&sess.LastAccessedAt,
		&sess.ExpiresAt,
		&sess.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authDomain.Session{}, authDomain.ErrSessionInvalid
		}
		return authDomain.Session{}, err
	}
	return sess, nil
}

// FindActiveByUser 取使用者目前有效的 session。
func (r *SessionRepo) FindActiveByUser(ctx context.Context, userID string) ([]authDomain.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM user_sessions
WHERE user_id = $1 AND is_active = TRUE
ORDER BY last_accessed_at;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []authDomain.Session
	for rows.Next() {
		var sess authDomain.Session
		if err := rows.Scan(
			&sess.SessionID,
			&sess.UserID,
			&sess.IPAddress,
			&sess.UserAgent,
			&sess.DeviceInfo,
			&sess.CreatedAt,
			&sess.LastAccessedAt,
			&sess.ExpiresAt,
			&sess.Active,
		); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// CountActiveByUser 計算使用者目前有效的 session 數。
func (r *SessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const q = `SELECT count(*) FROM user_sessions WHERE user_id = $1 AND is_active = TRUE;`
	var count int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateActivity 更新活動時間並延展到期時間；僅作用於仍有效的 session，
// 回傳是否有列被更新。
func (r *SessionRepo) UpdateActivity(ctx context.Context, sessionID string, lastAccessed, expiresAt time.Time) (bool, error) {
	const q = `
UPDATE user_sessions
SET last_accessed_at = $2, expires_at = $3
WHERE session_id = $1 AND is_active = TRUE AND expires_at > $2;
`
	res, err := r.db.ExecContext(ctx, q, sessionID, lastAccessed, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Deactivate 停用單一 session；不存在的 id 視為完成。
func (r *SessionRepo) Deactivate(ctx context.Context, sessionID string) error {
	const q = `UPDATE user_sessions SET is_active = FALSE WHERE session_id = $1;`
	_, err := r.db.ExecContext(ctx, q, sessionID)
	return err
}

// DeactivateAllByUser 停用使用者的全部 session。
func (r *SessionRepo) DeactivateAllByUser(ctx context.Context, userID string) error {
	const q = `UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1;`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}

// DeleteExpired 刪除已過期或已停用的 session 列，回傳刪除筆數。
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM user_sessions WHERE expires_at <= $1 OR is_active = FALSE;`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
