// ABOUTME: Identity provider interface and error taxonomy
// ABOUTME: Defines Principal and the credential operations the roster kernel consumes

package identity

import (
	"context"
	"errors"
	"regexp"
)

// Authentication errors. These map one-to-one onto the categories the
// console surfaces to the user on a failed sign-in attempt.
var (
	ErrInvalidEmail    = errors.New("invalid email address format")
	ErrAccountNotFound = errors.New("no account found with this email address")
	ErrWrongPassword   = errors.New("incorrect password")
	ErrAccountDisabled = errors.New("account has been disabled")
	ErrRateLimited     = errors.New("too many failed attempts, try again later")
	ErrEmailInUse      = errors.New("email already registered")
	ErrWeakPassword    = errors.New("password does not meet provider policy")
)

// emailRegex is the standard address pattern: non-empty local part, "@",
// non-empty domain with at least one dot.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr matches the standard address pattern.
func ValidEmail(addr string) bool {
	return emailRegex.MatchString(addr)
}

// Principal is an authenticated identity issued by the provider. It is
// ephemeral per session; the roster record is the durable counterpart.
type Principal struct {
	ID    string
	Email string
}

// Provider is the identity provider surface the roster kernel consumes.
// Implementations own credential storage, password policy, and session
// revocation; the kernel treats all of it as a black box.
//
// CreateAccount is the privileged (service-role) account-creation call: it
// creates a credential without signing anyone in or touching any existing
// session.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	Reauthenticate(ctx context.Context, id, currentPassword string) error
	CreateAccount(ctx context.Context, email, password string) (*Principal, error)
	UpdateEmail(ctx context.Context, id, newEmail string) error
	UpdatePassword(ctx context.Context, id, newPassword string) error
	RevokeSessions(ctx context.Context, id string) error
	Lookup(ctx context.Context, id string) (*Principal, error)
}
