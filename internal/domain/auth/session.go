package auth

import (
	"strings"
	"time"
)

// ClientMeta 描述發起請求的客戶端（IP、User-Agent、裝置分類）。
type ClientMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// Session 紀錄一次登入產生的伺服端 session。
// 有效條件：Active 且尚未過期；登出、logout-all 或超額淘汰會關閉 Active。
type Session struct {
	SessionID      string
	UserID         string
	IPAddress      string
	UserAgent      string
	DeviceInfo     string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
	Active         bool
}

// Expired 檢查 session 是否已過期。
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Valid 檢查 session 是否仍可使用。
func (s Session) Valid(now time.Time) bool {
	return s.Active && !s.Expired(now)
}

// DeriveDeviceInfo 從 User-Agent 粗略判斷裝置類型。
func DeriveDeviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	switch {
	case strings.Contains(userAgent, "Mobile"),
		strings.Contains(userAgent, "Android"),
		strings.Contains(userAgent, "iPhone"):
		return "Mobile Device"
	case strings.Contains(userAgent, "Tablet"),
		strings.Contains(userAgent, "iPad"):
		return "Tablet"
	default:
		return "Desktop"
	}
}
