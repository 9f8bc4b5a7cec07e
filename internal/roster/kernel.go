// ABOUTME: Roster policy kernel service, roles, and session context
// ABOUTME: Classifies main-admin identity and threads session state through calls

package roster

import (
	"context"
	"log/slog"
	"strings"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

// Role is the capability level of an authorized session.
type Role string

const (
	// RoleMainAdmin is the single principal with roster-mutating privileges.
	RoleMainAdmin Role = "main_admin"
	// RoleAdmin is a secondary admin with console access only.
	RoleAdmin Role = "admin"
)

// Session is the authorization context for one authenticated principal,
// threaded explicitly through kernel calls. There is no process-wide
// current-session state.
type Session struct {
	Principal *identity.Principal
	Role      Role
	Record    *store.RosterRecord
}

// IsMainAdmin reports whether the session holds main-admin privileges.
func (s *Session) IsMainAdmin() bool {
	return s != nil && s.Role == RoleMainAdmin
}

// Config holds kernel configuration.
type Config struct {
	// MainAdminEmail is the fixed, configured main-admin address. A
	// principal with this email is classified main-admin regardless of the
	// roster record's flag.
	MainAdminEmail string
}

// Service is the admin access and roster policy kernel. All console entry
// points and roster mutations are expressed as operations on it.
type Service struct {
	records store.RosterStore
	idp     identity.Provider
	audit   store.AuditStore
	cfg     Config
	logger  *slog.Logger
}

// New creates a roster policy kernel.
func New(records store.RosterStore, idp identity.Provider, audit store.AuditStore, cfg Config) *Service {
	return &Service{
		records: records,
		idp:     idp,
		audit:   audit,
		cfg:     cfg,
		logger:  slog.Default().With("component", "roster"),
	}
}

// classify determines the role for a principal email and roster record.
// Main-admin classification is disjunctive: the configured email match OR
// the record flag is sufficient. The second return value reports whether
// the two predicates disagree; the kernel never reconciles a mismatch, it
// only signals it.
func (s *Service) classify(email string, rec *store.RosterRecord) (Role, bool) {
	emailMatch := strings.EqualFold(email, s.cfg.MainAdminEmail)
	flag := rec != nil && rec.IsMainAdmin

	role := RoleAdmin
	if emailMatch || flag {
		role = RoleMainAdmin
	}
	return role, emailMatch != flag
}

// IsMainAdminRecord classifies a roster record on its own, without a live
// principal. Used when partitioning the roster list and when guarding
// mutations against the main-admin record.
func (s *Service) IsMainAdminRecord(rec *store.RosterRecord) bool {
	return strings.EqualFold(rec.Email, s.cfg.MainAdminEmail) || rec.IsMainAdmin
}

// requireMainAdmin enforces the kernel-side privilege check on mutations.
// The check lives here, not in the UI: hiding a button is not access control.
func requireMainAdmin(sess *Session) error {
	if !sess.IsMainAdmin() {
		return ErrNotMainAdmin
	}
	return nil
}

// appendAudit records a roster mutation. Best-effort: an audit failure is
// logged but never changes the outcome of the mutation itself.
func (s *Service) appendAudit(ctx context.Context, entry *store.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", entry.Action, "target", entry.TargetID, "error", err)
	}
}
