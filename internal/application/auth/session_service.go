package auth

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"curema-crm/internal/domain/auth"

	"github.com/google/uuid"
)

// SessionRepository 存取伺服端 session 狀態。
type SessionRepository interface {
	Insert(ctx context.Context, s auth.Session) error
	FindByID(ctx context.Context, sessionID string) (auth.Session, error)
	FindActiveByUser(ctx context.Context, userID string) ([]auth.Session, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	// UpdateActivity 僅更新仍然有效的 session，回傳是否有命中。
	UpdateActivity(ctx context.Context, sessionID string, lastAccessed, expiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateAllByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionService 管理 session 生命週期：建立（含超額淘汰）、
// 活動更新、有效性檢查、停用與清除。
type SessionService struct {
	repo      SessionRepository
	maxActive int
	timeout   time.Duration
	now       func() time.Time
}

// NewSessionService 建立 SessionService。
func NewSessionService(repo SessionRepository, maxActive int, timeout time.Duration) *SessionService {
	return &SessionService{
		repo:      repo,
		maxActive: maxActive,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Create 建立新 session。若使用者的有效 session 數已達上限，
// 先停用最久未使用的 count-max+1 個，再插入新的一筆。
func (s *SessionService) Create(ctx context.Context, user auth.User, meta auth.ClientMeta) (auth.Session, error) {
	if err := s.evictExcessive(ctx, user); err != nil {
		return auth.Session{}, err
	}

	now := s.now()
	sess := auth.Session{
		SessionID:      uuid.New().String(),
		UserID:         user.ID,
		IPAddress:      meta.IPAddress,
		UserAgent:      truncateUserAgent(meta.UserAgent),
		DeviceInfo:     meta.DeviceInfo,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.timeout),
		Active:         true,
	}
	if err := s.repo.Insert(ctx, sess); err != nil {
		return auth.Session{}, fmt.Errorf("insert session: %w", err)
	}

	log.Printf("[Session] created session %s for user %s from IP %s", sess.SessionID, user.Username, meta.IPAddress)
	return sess, nil
}

func (s *SessionService) evictExcessive(ctx context.Context, user auth.User) error {
	count, err := s.repo.CountActiveByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count active sessions: %w", err)
	}
	if count < s.maxActive {
		return nil
	}

	active, err := s.repo.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastAccessedAt.Before(active[j].LastAccessedAt)
	})

	evict := count - s.maxActive + 1
	if evict > len(active) {
		evict = len(active)
	}
	for _, old := range active[:evict] {
		if err := s.repo.Deactivate(ctx, old.SessionID); err != nil {
			return fmt.Errorf("evict session %s: %w", old.SessionID, err)
		}
	}

	log.Printf("[Session] evicted %d excessive sessions for user %s", evict, user.Username)
	return nil
}

// Touch 更新 last_accessed_at 並將到期時間順延。
// session 不存在或已失效時回傳 ErrSessionInvalid。
func (s *SessionService) Touch(ctx context.Context, sessionID string) error {
	now := s.now()
	ok, err := s.repo.UpdateActivity(ctx, sessionID, now, now.Add(s.timeout))
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		return auth.ErrSessionInvalid
	}
	return nil
}

// IsValid 檢查 session 是否存在、啟用且尚未過期。
func (s *SessionService) IsValid(ctx context.Context, sessionID string) bool {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return false
	}
	return sess.Valid(s.now())
}

// Deactivate 停用單一 session；不存在時視為已完成。
func (s *SessionService) Deactivate(ctx context.Context, sessionID string) error {
	if err := s.repo.Deactivate(ctx, sessionID); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	log.Printf("[Session] deactivated session %s", sessionID)
	return nil
}

// DeactivateAll 停用使用者的全部 session。
func (s *SessionService) DeactivateAll(ctx context.Context, user auth.User) error {
	if err := s.repo.DeactivateAllByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("deactivate all sessions: %w", err)
	}
	log.Printf("[Session] deactivated all sessions for user %s", user.Username)
	return nil
}

// SweepExpired 刪除已過期或已停用的 session 列；僅由清理排程呼叫。
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
