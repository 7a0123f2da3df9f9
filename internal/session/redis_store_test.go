package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"helpcenter/api/internal/theme"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	data := TokenData{UserID: "user-123", TenantID: "tenant-1", DisplayName: "Ada", Role: "editor"}
	if err := store.SaveRefreshSession(ctx, "hash-1", data, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	got, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if got.UserID != "user-123" || got.TenantID != "tenant-1" || got.Role != "editor" {
		t.Fatalf("unexpected token data: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestLookupDefaultsRoleToViewer(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", TokenData{UserID: "u"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Role != "viewer" {
		t.Fatalf("expected viewer, got %q", got.Role)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", TokenData{UserID: "u"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.FastForward(2 * time.Hour)

	if _, err := store.LookupRefreshSession(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	if _, err := store.LookupRefreshSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", TokenData{UserID: "u"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "never-existed"); err != nil {
		t.Fatalf("revoking a missing token should succeed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	_ = store.SaveRefreshSession(ctx, "hash-a", TokenData{UserID: "a", TenantID: "t1"}, exp)
	_ = store.SaveRefreshSession(ctx, "hash-b", TokenData{UserID: "b", TenantID: "t2"}, exp)

	if err := store.RevokeRefreshSession(ctx, "hash-a"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err := store.LookupRefreshSession(ctx, "hash-b")
	if err != nil {
		t.Fatalf("session b should survive: %v", err)
	}
	if got.UserID != "b" || got.TenantID != "t2" {
		t.Fatalf("unexpected data: %+v", got)
	}
}

func TestRevokedAccessTokenExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.RevokeAccessToken(ctx, "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	s.FastForward(11 * time.Minute)
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected denylist entry to expire, got %v %v", revoked, err)
	}
}

func sampleCheckpoint(t *testing.T) EditCheckpoint {
	t.Helper()
	s, err := theme.NewSession(theme.DefaultRegistry(), "ecommerce")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Editor().Open(s.Model().Sections()[0].ID, theme.EditContent); err != nil {
		t.Fatalf("open editor: %v", err)
	}
	return EditCheckpoint{ID: "edit-1", TenantID: "tenant-1", UserID: "user-1", State: s.State(), UpdatedAt: time.Now().UTC()}
}

func TestEditCheckpointRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	cp := sampleCheckpoint(t)

	if err := store.SaveEdit(ctx, cp, time.Hour); err != nil {
		t.Fatalf("save edit: %v", err)
	}
	got, err := store.LoadEdit(ctx, "edit-1")
	if err != nil {
		t.Fatalf("load edit: %v", err)
	}
	if got.TenantID != "tenant-1" || got.State.Theme != "ecommerce" {
		t.Fatalf("unexpected checkpoint: %+v", got)
	}
	if len(got.State.Sections) != len(cp.State.Sections) {
		t.Fatalf("expected %d sections, got %d", len(cp.State.Sections), len(got.State.Sections))
	}
	if !got.State.Editor.Editing || got.State.Editor.SectionID != cp.State.Editor.SectionID {
		t.Fatalf("editor state not preserved: %+v", got.State.Editor)
	}

	s.FastForward(2 * time.Hour)
	if _, err := store.LoadEdit(ctx, "edit-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected checkpoint to expire, got %v", err)
	}
}

func TestDeleteEdit(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveEdit(ctx, sampleCheckpoint(t), time.Hour); err != nil {
		t.Fatalf("save edit: %v", err)
	}
	if err := store.DeleteEdit(ctx, "edit-1"); err != nil {
		t.Fatalf("delete edit: %v", err)
	}
	if _, err := store.LoadEdit(ctx, "edit-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
