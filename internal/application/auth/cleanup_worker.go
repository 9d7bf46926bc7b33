package auth

import (
	"context"
	"log"
	"time"
)

// CleanupWorker 以兩個獨立的 ticker 定期清除過期狀態：
// refresh token 與 session 各自排程，互不影響，單次失敗只記錄。
type CleanupWorker struct {
	sessions        *SessionService
	tokens          *RefreshTokenService
	tokenInterval   time.Duration
	sessionInterval time.Duration
	stopChan        chan struct{}
}

// NewCleanupWorker 建立清理排程。
func NewCleanupWorker(sessions *SessionService, tokens *RefreshTokenService, tokenInterval, sessionInterval time.Duration) *CleanupWorker {
	if tokenInterval <= 0 {
		tokenInterval = time.Hour
	}
	if sessionInterval <= 0 {
		sessionInterval = 30 * time.Minute
	}
	return &CleanupWorker{
		sessions:        sessions,
		tokens:          tokens,
		tokenInterval:   tokenInterval,
		sessionInterval: sessionInterval,
		stopChan:        make(chan struct{}),
	}
}

// Start 啟動兩個清理迴圈。
func (w *CleanupWorker) Start() {
	log.Printf("[Cleanup] starting cleanup worker (tokens every %v, sessions every %v)", w.tokenInterval, w.sessionInterval)

	go w.loop(w.tokenInterval, w.sweepTokens)
	go w.loop(w.sessionInterval, w.sweepSessions)
}

// Stop 停止兩個迴圈。
func (w *CleanupWorker) Stop() {
	close(w.stopChan)
}

func (w *CleanupWorker) loop(interval time.Duration, run func()) {
	// 啟動後立即執行一次
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-w.stopChan:
			return
		}
	}
}

func (w *CleanupWorker) sweepTokens() {
	n, err := w.tokens.SweepExpiredOrRevoked(context.Background())
	if err != nil {
		log.Printf("[Cleanup] refresh token sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Cleanup] removed %d expired/revoked refresh tokens", n)
	}
}

func (w *CleanupWorker) sweepSessions() {
	n, err := w.sessions.SweepExpired(context.Background())
	if err != nil {
		log.Printf("[Cleanup] session sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[Cleanup] removed %d expired/inactive sessions", n)
	}
}
