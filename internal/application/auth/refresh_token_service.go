package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"curema-crm/internal/domain/auth"
)

// refreshTokenBytes 是 refresh token 的亂數長度（512 bits）。
const refreshTokenBytes = 64

// RefreshTokenRepository 存取 refresh token 狀態。
type RefreshTokenRepository interface {
	Insert(ctx context.Context, t auth.RefreshToken) error
	// FindByToken 不分已撤銷與否；找不到時回傳 ErrTokenNotFound。
	FindByToken(ctx context.Context, token string) (auth.RefreshToken, error)
	FindActiveByUser(ctx context.Context, userID string) ([]auth.RefreshToken, error)
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error)
	Delete(ctx context.Context, token string) error
	Revoke(ctx context.Context, token string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}

// RefreshTokenService 管理 refresh token 生命週期：簽發（含超額淘汰）、
// 查詢、過期即刪、撤銷與清除。
type RefreshTokenService struct {
	repo      RefreshTokenRepository
	maxActive int
	ttl       time.Duration
	now       func() time.Time
}

// NewRefreshTokenService 建立 RefreshTokenService。
func NewRefreshTokenService(repo RefreshTokenRepository, maxActive int, ttl time.Duration) *RefreshTokenService {
	return &RefreshTokenService{
		repo:      repo,
		maxActive: maxActive,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create 為使用者簽發新的 refresh token。有效 token 數達上限時，
// 先撤銷最早建立的 count-max+1 個。token 值來自 crypto/rand，
// 與任何使用者輸入無關。
func (s *RefreshTokenService) Create(ctx context.Context, user auth.User, meta auth.ClientMeta) (auth.RefreshToken, error) {
	if err := s.evictExcessive(ctx, user); err != nil {
		return auth.RefreshToken{}, err
	}

	value, err := generateSecureToken()
	if err != nil {
		return auth.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	tok := auth.RefreshToken{
		Token:      value,
		UserID:     user.ID,
		CreatedAt:  now,
		ExpiryDate: now.Add(s.ttl),
		IPAddress:  meta.IPAddress,
		DeviceInfo: truncateUserAgent(meta.UserAgent),
	}
	if err := s.repo.Insert(ctx, tok); err != nil {
		return auth.RefreshToken{}, fmt.Errorf("insert refresh token: %w", err)
	}

	log.Printf("[Auth] created refresh token for user %s from IP %s", user.Username, meta.IPAddress)
	return tok, nil
}

func (s *RefreshTokenService) evictExcessive(ctx context.Context, user auth.User) error {
	count, err := s.repo.CountActiveByUser(ctx, user.ID, s.now())
	if err != nil {
		return fmt.Errorf("count active tokens: %w", err)
	}
	if count < s.maxActive {
		return nil
	}

	active, err := s.repo.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list active tokens: %w", err)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	evict := count - s.maxActive + 1
	if evict > len(active) {
		evict = len(active)
	}
	at := s.now()
	for _, old := range active[:evict] {
		if err := s.repo.Revoke(ctx, old.Token, at); err != nil {
			return fmt.Errorf("evict refresh token: %w", err)
		}
	}

	log.Printf("[Auth] revoked %d excessive refresh tokens for user %s", evict, user.Username)
	return nil
}

// FindActive 查詢仍可使用的 token。
// 不存在回傳 ErrTokenNotFound，已撤銷回傳 ErrTokenRevoked。
func (s *RefreshTokenService) FindActive(ctx context.Context, token string) (auth.RefreshToken, error) {
	tok, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			return auth.RefreshToken{}, auth.ErrTokenNotFound
		}
		return auth.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	if tok.Revoked {
		return auth.RefreshToken{}, auth.ErrTokenRevoked
	}
	return tok, nil
}

// VerifyNotExpired 檢查 token 是否過期；過期時順手刪除該列
// （惰性清理，獨立於排程），並回傳 ErrTokenExpired。
func (s *RefreshTokenService) VerifyNotExpired(ctx context.Context, tok auth.RefreshToken) (auth.RefreshToken, error) {
	if tok.Expired(s.now()) {
		if err := s.repo.Delete(ctx, tok.Token); err != nil {
			log.Printf("[Auth] delete expired refresh token failed: %v", err)
		}
		return auth.RefreshToken{}, auth.ErrTokenExpired
	}
	return tok, nil
}

// Revoke 撤銷單一 token；重複撤銷視為已完成。
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) error {
	if err := s.repo.Revoke(ctx, token, s.now()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	log.Printf("[Auth] revoked refresh token %s", maskToken(token))
	return nil
}

// RevokeAll 撤銷使用者的全部 token。
func (s *RefreshTokenService) RevokeAll(ctx context.Context, user auth.User) error {
	if err := s.repo.RevokeAllByUser(ctx, user.ID, s.now()); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	log.Printf("[Auth] revoked all refresh tokens for user %s", user.Username)
	return nil
}

// SweepExpiredOrRevoked 刪除已過期或已撤銷的 token 列；僅由清理排程呼叫。
func (s *RefreshTokenService) SweepExpiredOrRevoked(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredOrRevoked(ctx, s.now())
}

func generateSecureToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func truncateUserAgent(ua string) string {
	if len(ua) > 500 {
		return ua[:500]
	}
	return ua
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "..."
	}
	return token[:10] + "..."
}
