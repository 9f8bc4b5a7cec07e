// ABOUTME: Store interfaces and data types for helmgate persistence
// ABOUTME: Defines RosterRecord, Credential, ConsoleSession and the store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrRecordExists is returned when creating a roster record whose
// identifier is already present.
var ErrRecordExists = errors.New("roster record already exists")

// ErrEmailExists is returned when creating a credential with an email
// that is already registered.
var ErrEmailExists = errors.New("email already registered")

// SystemActor is the sentinel recorded in created_by for writes the
// system performs on its own behalf (auto-provisioning on first login).
const SystemActor = "system_auto_provision"

// RosterRecord is the authorization and profile record for one admin,
// keyed by the identity provider's identifier. All timestamps are
// assigned by the store on write, never by the caller.
type RosterRecord struct {
	ID          string
	Name        string
	Email       string
	Mobile      string
	Blocked     bool
	IsMainAdmin bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLogin   time.Time
	CreatedBy   string
	UpdatedBy   string
}

// Credential is an identity provider account. The roster record lifetime
// is independent of the credential lifetime: deleting one does not remove
// the other.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash
	Disabled     bool
	CreatedAt    time.Time
}

// ConsoleSession is an authenticated browser session for the admin console.
type ConsoleSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuditEntry records one roster mutation for after-the-fact review.
type AuditEntry struct {
	ID       string
	ActorID  string
	Action   string
	TargetID string
	Detail   map[string]any
	At       time.Time
}

// Audit actions.
const (
	AuditAutoProvision  = "auto_provision"
	AuditCreateUser     = "create_user"
	AuditUpdateUser     = "update_user"
	AuditBlockUser      = "block_user"
	AuditUnblockUser    = "unblock_user"
	AuditDeleteUser     = "delete_user"
	AuditChangeEmail    = "change_email"
	AuditChangePassword = "change_password"
)

// RosterStore defines persistence for roster records. Writes are
// last-write-wins; there is no version check before an update, so two
// admins racing on the same record resolve in store order.
type RosterStore interface {
	GetRecord(ctx context.Context, id string) (*RosterRecord, error)
	CreateRecord(ctx context.Context, rec *RosterRecord) error
	UpdateProfile(ctx context.Context, id, name, mobile, updatedBy string) error
	UpdateEmail(ctx context.Context, id, email, updatedBy string) error
	SetBlocked(ctx context.Context, id string, blocked bool, updatedBy string) error
	TouchLastLogin(ctx context.Context, id string) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context) ([]*RosterRecord, error)
	CountRecords(ctx context.Context) (int, error)
}

// CredentialStore defines persistence for identity provider accounts.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, id string) (*Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	UpdateCredentialEmail(ctx context.Context, id, email string) error
	UpdateCredentialPassword(ctx context.Context, id, passwordHash string) error
	DeleteCredential(ctx context.Context, id string) error
}

// SessionStore defines persistence for browser console sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *ConsoleSession) error
	GetSession(ctx context.Context, id string) (*ConsoleSession, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForUser(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) error
}

// AuditStore defines append-only audit logging.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error)
}
