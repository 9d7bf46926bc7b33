package auth

import (
	"errors"
	"time"
)

// Role 定義系統角色。v1 僅有單一隱含角色 ADMIN。
type Role string

const (
	RoleAdmin Role = "ADMIN"
)

// User 基本帳號資料。密碼僅存雜湊值；核心對使用者為唯讀，
// 唯一的寫入是登入成功後更新 LastLoginAt。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Enabled      bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

// Principal 是驗證成功後建立的請求主體，內容取自 access token claims。
type Principal struct {
	UserID    string
	Username  string
	Email     string
	Role      Role
	SessionID string
}
