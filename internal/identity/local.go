// ABOUTME: Local identity provider backed by the credential store and bcrypt
// ABOUTME: Implements sign-in, reauthentication, privileged account creation, and revocation

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmgate/helmgate/internal/store"
)

// minPasswordLength is the provider-side password policy. Callers may
// enforce stricter minimums on top of it.
const minPasswordLength = 6

// Failed sign-in throttling per email address.
const (
	maxFailedAttempts = 10
	attemptWindow     = 5 * time.Minute
)

// dummyHash is a bcrypt hash compared against when the account does not
// exist, so sign-in timing does not reveal which emails are registered.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// LocalProvider implements Provider with credentials persisted through the
// store and passwords hashed with bcrypt.
type LocalProvider struct {
	creds    store.CredentialStore
	sessions store.SessionStore
	logger   *slog.Logger

	mu       sync.Mutex
	failures map[string][]time.Time // email -> recent failed attempts
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a local identity provider.
func NewLocalProvider(creds store.CredentialStore, sessions store.SessionStore) *LocalProvider {
	return &LocalProvider{
		creds:    creds,
		sessions: sessions,
		logger:   slog.Default().With("component", "identity"),
		failures: make(map[string][]time.Time),
	}
}

// SignIn verifies an email/password pair and returns the principal.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	if p.throttled(email) {
		return nil, ErrRateLimited
	}

	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Dummy comparison keeps unknown-account timing identical
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		p.recordFailure(email)
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		p.recordFailure(email)
		return nil, ErrWrongPassword
	}

	if cred.Disabled {
		return nil, ErrAccountDisabled
	}

	p.clearFailures(email)
	p.logger.Debug("sign-in succeeded", "id", cred.ID)
	return &Principal{ID: cred.ID, Email: cred.Email}, nil
}

// Reauthenticate verifies the current password for an already signed-in
// principal. Required before sensitive self-service operations.
func (p *LocalProvider) Reauthenticate(ctx context.Context, id, currentPassword string) error {
	cred, err := p.creds.GetCredential(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// CreateAccount creates a new credential without establishing a session.
// This is the service-role path used when the main admin registers a
// secondary admin: the caller's own session is untouched.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	cred := &store.Credential{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.creds.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("creating credential: %w", err)
	}

	p.logger.Info("created account", "id", cred.ID, "email", email)
	return &Principal{ID: cred.ID, Email: email}, nil
}

// UpdateEmail changes the email address of an account.
func (p *LocalProvider) UpdateEmail(ctx context.Context, id, newEmail string) error {
	newEmail = strings.TrimSpace(newEmail)
	if !ValidEmail(newEmail) {
		return ErrInvalidEmail
	}

	err := p.creds.UpdateCredentialEmail(ctx, id, newEmail)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if errors.Is(err, store.ErrEmailExists) {
		return ErrEmailInUse
	}
	if err != nil {
		return fmt.Errorf("updating email: %w", err)
	}

	p.logger.Info("updated account email", "id", id)
	return nil
}

// UpdatePassword changes the password of an account.
func (p *LocalProvider) UpdatePassword(ctx context.Context, id, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = p.creds.UpdateCredentialPassword(ctx, id, string(hash))
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// RevokeSessions ends every active console session for the account. Used to
// force sign-out when a roster record is blocked.
func (p *LocalProvider) RevokeSessions(ctx context.Context, id string) error {
	return p.sessions.DeleteSessionsForUser(ctx, id)
}

// Lookup resolves an identifier to its principal.
func (p *LocalProvider) Lookup(ctx context.Context, id string) (*Principal, error) {
	cred, err := p.creds.GetCredential(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up credential: %w", err)
	}
	if cred.Disabled {
		return nil, ErrAccountDisabled
	}
	return &Principal{ID: cred.ID, Email: cred.Email}, nil
}

// throttled reports whether an email has exceeded the failed-attempt budget
// within the attempt window.
func (p *LocalProvider) throttled(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-attemptWindow)
	recent := p.failures[email][:0]
	for _, t := range p.failures[email] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	p.failures[email] = recent
	return len(recent) >= maxFailedAttempts
}

func (p *LocalProvider) recordFailure(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[email] = append(p.failures[email], time.Now())
}

func (p *LocalProvider) clearFailures(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failures, email)
}
