package auth

import "time"

// TokenTypeAccess 是 access token claims 的 tokenType 固定值。
const TokenTypeAccess = "access"

// RefreshToken 是長效、可撤銷的不透明亂數憑證，僅存在於伺服端儲存。
type RefreshToken struct {
	Token      string
	UserID     string
	CreatedAt  time.Time
	ExpiryDate time.Time
	Revoked    bool
	RevokedAt  *time.Time
	IPAddress  string
	DeviceInfo string
}

// Expired 檢查 token 是否已過期。
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiryDate)
}

// ActiveAt 檢查 token 是否仍可用於 refresh。
func (t RefreshToken) ActiveAt(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}

// AccessClaims 是 access token 解出的固定欄位集合。
type AccessClaims struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	SessionID string
	TokenType string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenBundle 是 login/refresh 成功後回傳給客戶端的完整憑證組。
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	SessionID    string
	User         User
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
