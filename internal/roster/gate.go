// ABOUTME: Session gate: authorize(principal) -> AccessDecision
// ABOUTME: Handles auto-provisioning on login and the stricter admin-area re-check

package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

// EntryPoint identifies which console entry point is asking for
// authorization. The two entry points intentionally differ in
// permissiveness for principals with no roster record.
type EntryPoint int

const (
	// EntryLogin is the login flow: an absent roster record is
	// auto-provisioned with defaults.
	EntryLogin EntryPoint = iota
	// EntryAdminArea is the post-login re-check when entering the admin
	// area: an absent roster record is a hard denial.
	EntryAdminArea
)

// DenyReason explains a denied AccessDecision.
type DenyReason string

const (
	DenyBlocked       DenyReason = "blocked"
	DenyNotRegistered DenyReason = "not_registered"
)

// AccessDecision is the outcome of authorizing a principal.
type AccessDecision struct {
	Granted bool
	Reason  DenyReason // set when Granted is false
	Role    Role
	Record  *store.RosterRecord

	// Inconsistent is set when the two main-admin predicates (configured
	// email match, record flag) disagree. The kernel tolerates the
	// divergence but makes it detectable rather than silently picking one.
	Inconsistent bool
}

// Authorize decides whether an authenticated principal may use the admin
// console and with what role.
//
// Errors are reserved for failures that are not authorization denials: a
// transient store read failure comes back as *StoreError (callers surface
// it without forcing sign-out), and a failed load-bearing auto-provision
// write comes back wrapping ErrProvisioningFailed. A denial (blocked
// record, unregistered principal on the admin-area entry point) is a
// non-error AccessDecision with Granted=false.
func (s *Service) Authorize(ctx context.Context, principal *identity.Principal, entry EntryPoint) (*AccessDecision, error) {
	rec, err := s.records.GetRecord(ctx, principal.ID)
	if errors.Is(err, store.ErrNotFound) {
		if entry != EntryLogin {
			return &AccessDecision{Granted: false, Reason: DenyNotRegistered}, nil
		}
		rec, err = s.autoProvision(ctx, principal)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, &StoreError{Op: "get record", Err: err}
	}

	if rec.Blocked {
		// Force the session to end; the denial stands even if revocation fails.
		if err := s.idp.RevokeSessions(ctx, principal.ID); err != nil {
			s.logger.Error("revoking sessions for blocked principal", "id", principal.ID, "error", err)
		}
		s.logger.Info("denied blocked principal", "id", principal.ID)
		return &AccessDecision{Granted: false, Reason: DenyBlocked, Record: rec}, nil
	}

	role, inconsistent := s.classify(principal.Email, rec)
	if inconsistent {
		s.logger.Warn("main-admin classification mismatch",
			"id", principal.ID,
			"email", principal.Email,
			"record_flag", rec.IsMainAdmin)
	}

	if entry == EntryLogin {
		// Best-effort: a failed login stamp must not block access that the
		// authorization checks already granted.
		if err := s.records.TouchLastLogin(ctx, principal.ID); err != nil {
			s.logger.Warn("stamping last login failed", "id", principal.ID, "error", err)
		}
	}

	return &AccessDecision{
		Granted:      true,
		Role:         role,
		Record:       rec,
		Inconsistent: inconsistent,
	}, nil
}

// autoProvision creates the default roster record for a first successful
// login. This write is load-bearing: if it fails, the login attempt is
// denied with ErrProvisioningFailed rather than granted on a phantom record.
func (s *Service) autoProvision(ctx context.Context, principal *identity.Principal) (*store.RosterRecord, error) {
	rec := &store.RosterRecord{
		ID:        principal.ID,
		Name:      localPart(principal.Email),
		Email:     principal.Email,
		Mobile:    "N/A",
		CreatedBy: store.SystemActor,
	}

	if err := s.records.CreateRecord(ctx, rec); err != nil && !errors.Is(err, store.ErrRecordExists) {
		return nil, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	s.logger.Info("auto-provisioned roster record", "id", rec.ID, "email", rec.Email)
	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  store.SystemActor,
		Action:   store.AuditAutoProvision,
		TargetID: rec.ID,
		Detail:   map[string]any{"email": rec.Email},
	})
	return rec, nil
}

// localPart derives a display name from the local part of an email address.
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
