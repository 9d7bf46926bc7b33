package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"curema-crm/internal/domain/auth"
)

// UserRepository 存取使用者。查無資料時回傳 ErrUserNotFound。
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (auth.User, error)
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
	Create(ctx context.Context, u auth.User) (auth.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// PasswordHasher 驗證與產生密碼雜湊。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
	Hash(plain string) (string, error)
}

// AccessTokenCodec 簽發/驗證 access token。
type AccessTokenCodec interface {
	Mint(user auth.User, sessionID string) (token string, issuedAt, expiresAt time.Time, err error)
	Verify(token string) (auth.AccessClaims, error)
	TTL() time.Duration
}

// 註冊帳號限用公司網域信箱。
var companyEmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@curema\.com$`)

// AuthService 協調登入、refresh、登出與請求驗證。
// 無任何全域狀態；程序啟動時建構一次，顯式傳入 HTTP 與排程層。
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	codec    AccessTokenCodec
	sessions *SessionService
	tokens   *RefreshTokenService
	now      func() time.Time
}

// NewAuthService 建立 AuthService。
func NewAuthService(users UserRepository, hasher PasswordHasher, codec AccessTokenCodec, sessions *SessionService, tokens *RefreshTokenService) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		codec:    codec,
		sessions: sessions,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Login 驗證帳密並簽發完整憑證組。所有失敗原因
// （帳號不存在、密碼錯誤、帳號停用）一律回 ErrInvalidCredentials。
func (s *AuthService) Login(ctx context.Context, username, password string, meta auth.ClientMeta) (auth.TokenBundle, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return auth.TokenBundle{}, auth.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		log.Printf("[Auth] failed login attempt for username %s from IP %s", username, meta.IPAddress)
		return auth.TokenBundle{}, auth.ErrInvalidCredentials
	}
	if !user.Enabled || !s.hasher.Compare(user.PasswordHash, password) {
		log.Printf("[Auth] failed login attempt for username %s from IP %s", username, meta.IPAddress)
		return auth.TokenBundle{}, auth.ErrInvalidCredentials
	}

	bundle, err := s.issueBundle(ctx, user, meta)
	if err != nil {
		return auth.TokenBundle{}, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		return auth.TokenBundle{}, fmt.Errorf("update last login: %w", err)
	}

	log.Printf("[Auth] user %s successfully logged in from IP %s", user.Username, meta.IPAddress)
	return bundle, nil
}

// Refresh 以 refresh token 換取新的 access token。建立「新的」session，
// 舊 session 不受影響；refresh token 值沿用不輪替。
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta auth.ClientMeta) (auth.TokenBundle, error) {
	tok, err := s.tokens.FindActive(ctx, refreshToken)
	if err != nil {
		return auth.TokenBundle{}, err
	}
	tok, err = s.tokens.VerifyNotExpired(ctx, tok)
	if err != nil {
		return auth.TokenBundle{}, err
	}

	user, err := s.users.FindByID(ctx, tok.UserID)
	if err != nil {
		return auth.TokenBundle{}, fmt.Errorf("load token owner: %w", err)
	}
	if !user.Enabled {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			log.Printf("[Auth] revoke token of disabled user failed: %v", err)
		}
		return auth.TokenBundle{}, auth.ErrAccountDisabled
	}

	sess, err := s.sessions.Create(ctx, user, meta)
	if err != nil {
		return auth.TokenBundle{}, err
	}
	access, issuedAt, expiresAt, err := s.codec.Mint(user, sess.SessionID)
	if err != nil {
		return auth.TokenBundle{}, fmt.Errorf("mint access token: %w", err)
	}

	log.Printf("[Auth] token refreshed for user %s from IP %s", user.Username, meta.IPAddress)
	return auth.TokenBundle{
		AccessToken:  access,
		RefreshToken: refreshToken, // 沿用原值
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
		SessionID:    sess.SessionID,
		User:         user,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout 盡力停用 session 與撤銷 refresh token。
// 任何內部錯誤只記錄不回報：客戶端必須能無條件清除本地憑證。
func (s *AuthService) Logout(ctx context.Context, sessionID, refreshToken string) {
	if sessionID != "" {
		if err := s.sessions.Deactivate(ctx, sessionID); err != nil {
			log.Printf("[Auth] logout: deactivate session %s failed: %v", sessionID, err)
		}
	}
	if refreshToken != "" {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			log.Printf("[Auth] logout: revoke refresh token failed: %v", err)
		}
	}
	log.Printf("[Auth] user logged out - session: %s", sessionID)
}

// LogoutAll 撤銷使用者的全部 refresh token 並停用全部 session。
func (s *AuthService) LogoutAll(ctx context.Context, username string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.sessions.DeactivateAll(ctx, user); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, user); err != nil {
		return err
	}
	log.Printf("[Auth] all sessions and tokens revoked for user %s", username)
	return nil
}

// Authenticate 驗證 access token 並確認其綁定的 session 仍然有效；
// 成功時更新 session 活動時間並回傳請求主體。任何一步失敗都只回傳
// 錯誤，不會讓例外越過這個邊界。
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return auth.Principal{}, err
	}
	if claims.SessionID == "" || !s.sessions.IsValid(ctx, claims.SessionID) {
		return auth.Principal{}, auth.ErrSessionInvalid
	}
	if err := s.sessions.Touch(ctx, claims.SessionID); err != nil {
		// isValid 與 touch 之間被登出/過期搶先，視為驗證失敗。
		if errors.Is(err, auth.ErrSessionInvalid) {
			return auth.Principal{}, auth.ErrSessionInvalid
		}
		log.Printf("[Auth] touch session %s failed: %v", claims.SessionID, err)
	}

	return auth.Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		Role:      auth.Role(claims.Role),
		SessionID: claims.SessionID,
	}, nil
}

// RegisterInput 定義註冊需求。
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register 建立新帳號：檢查唯一性與公司信箱網域，密碼以 bcrypt 雜湊。
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (auth.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return auth.User{}, errors.New("username, email and password are required")
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return auth.User{}, auth.ErrUsernameTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return auth.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return auth.User{}, auth.ErrEmailTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return auth.User{}, fmt.Errorf("check email: %w", err)
	}

	if !companyEmailPattern.MatchString(email) {
		return auth.User{}, errors.New("invalid email address, please use a @curema.com email address")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := auth.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Enabled:      true,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return auth.User{}, fmt.Errorf("create user: %w", err)
	}

	log.Printf("[Auth] new user registered: %s", created.Username)
	return created, nil
}

// UserByUsername 查詢使用者（供 profile 端點使用）。
func (s *AuthService) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	return s.users.FindByUsername(ctx, username)
}

func (s *AuthService) issueBundle(ctx context.Context, user auth.User, meta auth.ClientMeta) (auth.TokenBundle, error) {
	sess, err := s.sessions.Create(ctx, user, meta)
	if err != nil {
		return auth.TokenBundle{}, err
	}
	refresh, err := s.tokens.Create(ctx, user, meta)
	if err != nil {
		return auth.TokenBundle{}, err
	}
	access, issuedAt, expiresAt, err := s.codec.Mint(user, sess.SessionID)
	if err != nil {
		return auth.TokenBundle{}, fmt.Errorf("mint access token: %w", err)
	}

	return auth.TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
		SessionID:    sess.SessionID,
		User:         user,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
	}, nil
}
