package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authDomain "curema-crm/internal/domain/auth"
)

// UserRepo 提供使用者帳號的 Postgres 存取。
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo 建立 UserRepo。
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, role, enabled, last_login_at, created_at, updated_at`

// FindByUsername 依 username 查詢使用者。
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (authDomain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
LIMIT 1;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, username))
}

// FindByEmail 依 email 查詢使用者。
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByID 依 ID 查詢使用者。
func (r *UserRepo) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

// Create 建立使用者並回傳含 DB 產生欄位的完整列。
func (r *UserRepo) Create(ctx context.Context, u authDomain.User) (authDomain.User, error) {
	const q = `
INSERT INTO users (username, email, password_hash, role, enabled)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns + `;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, u.Username, u.Email, u.PasswordHash, string(u.Role), u.Enabled))
}

// UpdateLastLogin 更新最後登入時間。
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE users
SET last_login_at = $2, updated_at = NOW()
WHERE id = $1;
`
	_, err := r.db.ExecContext(ctx, q, id, at)
	return err
}

func (r *UserRepo) scanUser(row *sql.Row) (authDomain.User, error) {
	var u authDomain.User
	var role string
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Enabled, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authDomain.User{}, authDomain.ErrUserNotFound
		}
		return authDomain.User{}, err
	}
	u.Role = authDomain.Role(role)
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}
