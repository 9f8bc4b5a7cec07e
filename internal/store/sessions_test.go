// ABOUTME: Tests for the console session store
// ABOUTME: Covers session lifetime, expiry filtering, and forced sign-out

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ConsoleSession{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID mismatch: got %q", got.UserID)
	}
}

func TestGetSession_Expired(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ConsoleSession{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ConsoleSession{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing session is not an error
	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Errorf("double delete should succeed, got %v", err)
	}
}

func TestDeleteSessionsForUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"sess-1", "sess-2"} {
		session := &ConsoleSession{
			ID:        id,
			UserID:    "user-1",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := store.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}
	other := &ConsoleSession{
		ID:        "sess-3",
		UserID:    "user-2",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.CreateSession(ctx, other); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.DeleteSessionsForUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteSessionsForUser failed: %v", err)
	}

	for _, id := range []string{"sess-1", "sess-2"} {
		if _, err := store.GetSession(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("session %s should be revoked, got %v", id, err)
		}
	}

	// Other users' sessions are untouched
	if _, err := store.GetSession(ctx, "sess-3"); err != nil {
		t.Errorf("unrelated session should survive, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	expired := &ConsoleSession{
		ID:        "sess-old",
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	live := &ConsoleSession{
		ID:        "sess-new",
		UserID:    "user-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.CreateSession(ctx, expired); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateSession(ctx, live); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "sess-new"); err != nil {
		t.Errorf("live session should survive cleanup, got %v", err)
	}
}
