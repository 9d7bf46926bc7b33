package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	authDomain "curema-crm/internal/domain/auth"
	authinfra "curema-crm/internal/infrastructure/auth"
)

// Store 保存使用者、session 與 refresh token 的記憶體狀態，
// 供未設定 DSN 的本機執行與測試使用。透過 Users/Sessions/Tokens
// 轉接成與 Postgres 相同的 repository 介面。
type Store struct {
	mu       sync.RWMutex
	users    map[string]authDomain.User         // key: user ID
	sessions map[string]authDomain.Session      // key: session ID
	tokens   map[string]authDomain.RefreshToken // key: token 值
	nextUser int
}

// NewStore 建立空的記憶體存儲。
func NewStore() *Store {
	return &Store{
		users:    map[string]authDomain.User{},
		sessions: map[string]authDomain.Session{},
		tokens:   map[string]authDomain.RefreshToken{},
	}
}

// Users 回傳 UserRepository 轉接器。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Sessions 回傳 SessionRepository 轉接器。
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// Tokens 回傳 RefreshTokenRepository 轉接器。
func (s *Store) Tokens() *TokenRepo { return &TokenRepo{s: s} }

// SeedUsers 建立預設帳號（admin/password123）。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return ""
		}
		return h
	}
	s.AddUser("admin", "admin@curema.com", hash("password123"), true)
}

// AddUser 直接塞入一筆使用者（測試用）。
func (s *Store) AddUser(username, email, passwordHash string, enabled bool) authDomain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUser++
	now := time.Now()
	u := authDomain.User{
		ID:           fmt.Sprintf("u-%d", s.nextUser),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         authDomain.RoleAdmin,
		Enabled:      enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u
}

// SetUserEnabled 切換帳號啟用狀態（測試用）。
func (s *Store) SetUserEnabled(userID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Enabled = enabled
		s.users[userID] = u
	}
}

// Session 讀出單一 session（測試用）。
func (s *Store) Session(sessionID string) (authDomain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// UserRepo 實作 application 層的 UserRepository。
type UserRepo struct {
	s *Store
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (authDomain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (authDomain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

func (r *UserRepo) FindByID(_ context.Context, id string) (authDomain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

func (r *UserRepo) Create(_ context.Context, u authDomain.User) (authDomain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextUser++
	u.ID = fmt.Sprintf("u-%d", r.s.nextUser)
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return authDomain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	r.s.users[id] = u
	return nil
}

// SessionRepo 實作 application 層的 SessionRepository。
type SessionRepo struct {
	s *Store
}

func (r *SessionRepo) Insert(_ context.Context, sess authDomain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[sess.SessionID] = sess
	return nil
}

func (r *SessionRepo) FindByID(_ context.Context, sessionID string) (authDomain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if sess, ok := r.s.sessions[sessionID]; ok {
		return sess, nil
	}
	return authDomain.Session{}, authDomain.ErrSessionInvalid
}

func (r *SessionRepo) FindActiveByUser(_ context.Context, userID string) ([]authDomain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []authDomain.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (r *SessionRepo) CountActiveByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active {
			count++
		}
	}
	return count, nil
}

func (r *SessionRepo) UpdateActivity(_ context.Context, sessionID string, lastAccessed, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok || !sess.Valid(lastAccessed) {
		return false, nil
	}
	sess.LastAccessedAt = lastAccessed
	sess.ExpiresAt = expiresAt
	r.s.sessions[sessionID] = sess
	return true, nil
}

func (r *SessionRepo) Deactivate(_ context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[sessionID]; ok {
		sess.Active = false
		r.s.sessions[sessionID] = sess
	}
	return nil
}

func (r *SessionRepo) DeactivateAllByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			sess.Active = false
			r.s.sessions[id] = sess
		}
	}
	return nil
}

func (r *SessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.Expired(now) || !sess.Active {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// TokenRepo 實作 application 層的 RefreshTokenRepository。
type TokenRepo struct {
	s *Store
}

func (r *TokenRepo) Insert(_ context.Context, tok authDomain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[tok.Token] = tok
	return nil
}

func (r *TokenRepo) FindByToken(_ context.Context, token string) (authDomain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if tok, ok := r.s.tokens[token]; ok {
		return tok, nil
	}
	return authDomain.RefreshToken{}, authDomain.ErrTokenNotFound
}

func (r *TokenRepo) FindActiveByUser(_ context.Context, userID string) ([]authDomain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []authDomain.RefreshToken
	for _, tok := range r.s.tokens {
		if tok.UserID == userID && !tok.Revoked {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (r *TokenRepo) CountActiveByUser(_ context.Context, userID string, now time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, tok := range r.s.tokens {
		if tok.UserID == userID && tok.ActiveAt(now) {
			count++
		}
	}
	return count, nil
}

func (r *TokenRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r *TokenRepo) Revoke(_ context.Context, token string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tok, ok := r.s.tokens[token]; ok && !tok.Revoked {
		tok.Revoked = true
		tok.RevokedAt = &at
		r.s.tokens[token] = tok
	}
	return nil
}

func (r *TokenRepo) RevokeAllByUser(_ context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, tok := range r.s.tokens {
		if tok.UserID == userID && !tok.Revoked {
			tok.Revoked = true
			tok.RevokedAt = &at
			r.s.tokens[key] = tok
		}
	}
	return nil
}

func (r *TokenRepo) DeleteExpiredOrRevoked(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key, tok := range r.s.tokens {
		if tok.Expired(now) || tok.Revoked {
			delete(r.s.tokens, key)
			n++
		}
	}
	return n, nil
}
