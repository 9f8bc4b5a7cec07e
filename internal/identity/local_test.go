// ABOUTME: Tests for the local identity provider
// ABOUTME: Covers sign-in, throttling, account lifecycle, and session revocation

package identity

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmgate/helmgate/internal/store"
)

func newTestProvider(t *testing.T) (*LocalProvider, *store.SQLiteStore) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewLocalProvider(st, st), st
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "jo.admin@example.com", "x+tag@sub.example.org"}
	invalid := []string{"", "plain", "@example.com", "a@b", "a b@example.com", "a@ex ample.com"}

	for _, email := range valid {
		assert.True(t, ValidEmail(email), "expected %q to be valid", email)
	}
	for _, email := range invalid {
		assert.False(t, ValidEmail(email), "expected %q to be invalid", email)
	}
}

func TestCreateAccount(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	principal, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, principal.ID)
	assert.Equal(t, "jo@example.com", principal.Email)
}

func TestCreateAccount_Validation(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "not-an-email", "password1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = p.CreateAccount(ctx, "jo@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	_, err = p.CreateAccount(ctx, "jo@example.com", "password2")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignIn(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	principal, err := p.SignIn(ctx, "jo@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, principal.ID)
	assert.Equal(t, "jo@example.com", principal.Email)
}

func TestSignIn_TrimsWhitespace(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "  jo@example.com  ", "password1")
	assert.NoError(t, err)
}

func TestSignIn_WrongPassword(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "jo@example.com", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestSignIn_UnknownAccount(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "ghost@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSignIn_InvalidEmail(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "nope", "password1")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestSignIn_DisabledAccount(t *testing.T) {
	p, st := newTestProvider(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateCredential(ctx, &store.Credential{
		ID:           "cred-1",
		Email:        "jo@example.com",
		PasswordHash: string(hash),
		Disabled:     true,
	}))

	_, err = p.SignIn(ctx, "jo@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestSignIn_RateLimited(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err = p.SignIn(ctx, "jo@example.com", fmt.Sprintf("wrong-%d", i))
		require.ErrorIs(t, err, ErrWrongPassword)
	}

	// Even the correct password is throttled now
	_, err = p.SignIn(ctx, "jo@example.com", "password1")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSignIn_SuccessClearsFailures(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts-1; i++ {
		_, _ = p.SignIn(ctx, "jo@example.com", "wrong")
	}

	_, err = p.SignIn(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	// Failure budget is reset after a success
	for i := 0; i < maxFailedAttempts-1; i++ {
		_, err = p.SignIn(ctx, "jo@example.com", "wrong")
		require.ErrorIs(t, err, ErrWrongPassword)
	}
}

func TestReauthenticate(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	principal, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	assert.NoError(t, p.Reauthenticate(ctx, principal.ID, "password1"))
	assert.ErrorIs(t, p.Reauthenticate(ctx, principal.ID, "wrong"), ErrWrongPassword)
	assert.ErrorIs(t, p.Reauthenticate(ctx, "ghost", "password1"), ErrAccountNotFound)
}

func TestUpdateEmail(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	principal, err := p.CreateAccount(ctx, "old@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, p.UpdateEmail(ctx, principal.ID, "new@example.com"))

	_, err = p.SignIn(ctx, "new@example.com", "password1")
	assert.NoError(t, err)
	_, err = p.SignIn(ctx, "old@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateEmail_Conflict(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	b, err := p.CreateAccount(ctx, "b@example.com", "password1")
	require.NoError(t, err)

	assert.ErrorIs(t, p.UpdateEmail(ctx, b.ID, "a@example.com"), ErrEmailInUse)
}

func TestUpdatePassword(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	principal, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	assert.ErrorIs(t, p.UpdatePassword(ctx, principal.ID, "tiny"), ErrWeakPassword)

	require.NoError(t, p.UpdatePassword(ctx, principal.ID, "password2"))

	_, err = p.SignIn(ctx, "jo@example.com", "password2")
	assert.NoError(t, err)
	_, err = p.SignIn(ctx, "jo@example.com", "password1")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestRevokeSessions(t *testing.T) {
	p, st := newTestProvider(t)
	ctx := context.Background()

	principal, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	session := &store.ConsoleSession{
		ID:        "sess-1",
		UserID:    principal.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, st.CreateSession(ctx, session))

	require.NoError(t, p.RevokeSessions(ctx, principal.ID))

	_, err = st.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLookup(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "jo@example.com", "password1")
	require.NoError(t, err)

	principal, err := p.Lookup(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", principal.Email)

	_, err = p.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
