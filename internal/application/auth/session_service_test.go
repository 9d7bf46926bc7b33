package auth

import (
	"context"
	"testing"
	"time"

	authDomain "curema-crm/internal/domain/auth"
	"curema-crm/internal/infra/memory"
)

func testSessionService(t *testing.T, maxActive int, timeout time.Duration) (*SessionService, *memory.Store, authDomain.User) {
	t.Helper()
	store := memory.NewStore()
	user := store.AddUser("alice", "alice@curema.com", "hash", true)
	return NewSessionService(store.Sessions(), maxActive, timeout), store, user
}

func TestSessionService_Create(t *testing.T) {
	svc, _, user := testSessionService(t, 3, 30*time.Minute)

	meta := authDomain.ClientMeta{IPAddress: "10.0.0.1", UserAgent: "UA", DeviceInfo: "Desktop"}
	sess, err := svc.Create(context.Background(), user, meta)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.SessionID == "" {
		t.Error("expected non-empty session id")
	}
	if !sess.Active {
		t.Error("expected new session active")
	}
	if got, want := sess.ExpiresAt.Sub(sess.CreatedAt), 30*time.Minute; got != want {
		t.Errorf("expiry window = %v, want %v", got, want)
	}
	if !svc.IsValid(context.Background(), sess.SessionID) {
		t.Error("expected new session valid")
	}
}

func TestSessionService_CapEvictsOldestByLastAccessed(t *testing.T) {
	svc, store, user := testSessionService(t, 3, 30*time.Minute)
	ctx := context.Background()

	// 造出三個 active session，最後存取時間遞增。
	base := time.Now()
	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		sess, err := svc.Create(ctx, user, authDomain.ClientMeta{})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
		ids[i] = sess.SessionID
	}

	svc.now = time.Now
	newSess, err := svc.Create(ctx, user, authDomain.ClientMeta{})
	if err != nil {
		t.Fatalf("Create over cap failed: %v", err)
	}
	for _, id := range ids {
		if id == newSess.SessionID {
			t.Fatal("expected previously-unseen session id")
		}
	}

	// 恰好淘汰一個：最久未使用的那個。
	if oldest, _ := store.Session(ids[0]); oldest.Active {
		t.Error("expected oldest session evicted")
	}
	for _, id := range ids[1:] {
		if sess, _ := store.Session(id); !sess.Active {
			t.Errorf("session %s should have survived", id)
		}
	}
	count, _ := store.Sessions().CountActiveByUser(ctx, user.ID)
	if count != 3 {
		t.Errorf("active count = %d, want 3", count)
	}
}

func TestSessionService_Touch(t *testing.T) {
	svc, store, user := testSessionService(t, 3, 30*time.Minute)
	ctx := context.Background()

	sess, err := svc.Create(ctx, user, authDomain.ClientMeta{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	later := time.Now().Add(10 * time.Minute)
	svc.now = func() time.Time { return later }
	if err := svc.Touch(ctx, sess.SessionID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	touched, _ := store.Session(sess.SessionID)
	if !touched.LastAccessedAt.Equal(later) {
		t.Errorf("lastAccessedAt = %v, want %v", touched.LastAccessedAt, later)
	}
	if !touched.ExpiresAt.Equal(later.Add(30 * time.Minute)) {
		t.Errorf("expiresAt = %v, want %v", touched.ExpiresAt, later.Add(30*time.Minute))
	}
}

func TestSessionService_TouchInvalidSession(t *testing.T) {
	svc, _, user := testSessionService(t, 3, 30*time.Minute)
	ctx := context.Background()

	if err := svc.Touch(ctx, "no-such-session"); err != authDomain.ErrSessionInvalid {
		t.Errorf("expected ErrSessionInvalid, got %v", err)
	}

	sess, _ := svc.Create(ctx, user, authDomain.ClientMeta{})
	if err := svc.Deactivate(ctx, sess.SessionID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if err := svc.Touch(ctx, sess.SessionID); err != authDomain.ErrSessionInvalid {
		t.Errorf("expected ErrSessionInvalid after deactivation, got %v", err)
	}
}

func TestSessionService_IsValid(t *testing.T) {
	svc, _, user := testSessionService(t, 3, 30*time.Minute)
	ctx := context.Background()

	sess, _ := svc.Create(ctx, user, authDomain.ClientMeta{})
	if !svc.IsValid(ctx, sess.SessionID) {
		t.Error("expected valid")
	}

	// 超過逾時即無效，即使 Active 仍為 true。
	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	if svc.IsValid(ctx, sess.SessionID) {
		t.Error("expected invalid after timeout")
	}

	svc.now = time.Now
	_ = svc.Deactivate(ctx, sess.SessionID)
	if svc.IsValid(ctx, sess.SessionID) {
		t.Error("expected invalid after deactivation")
	}
}

func TestSessionService_DeactivateIdempotent(t *testing.T) {
	svc, _, user := testSessionService(t, 3, 30*time.Minute)
	ctx := context.Background()

	sess, _ := svc.Create(ctx, user, authDomain.ClientMeta{})
	if err := svc.Deactivate(ctx, sess.SessionID); err != nil {
		t.Fatalf("first Deactivate failed: %v", err)
	}
	if err := svc.Deactivate(ctx, sess.SessionID); err != nil {
		t.Fatalf("second Deactivate failed: %v", err)
	}
}

func TestSessionService_SweepExpired(t *testing.T) {
	svc, store, user := testSessionService(t, 5, 30*time.Minute)
	ctx := context.Background()

	active, _ := svc.Create(ctx, user, authDomain.ClientMeta{})
	inactive, _ := svc.Create(ctx, user, authDomain.ClientMeta{})
	_ = svc.Deactivate(ctx, inactive.SessionID)

	n, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d rows, want 1 (the deactivated one)", n)
	}
	if _, ok := store.Session(inactive.SessionID); ok {
		t.Error("expected inactive session removed")
	}
	if _, ok := store.Session(active.SessionID); !ok {
		t.Error("expected active session kept")
	}

	// 時間推進後，原本有效的 session 也會被清除。
	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	n, err = svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("second SweepExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d rows, want 1 (the now-expired one)", n)
	}
}
