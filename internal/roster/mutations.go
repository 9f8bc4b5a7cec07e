// ABOUTME: Roster mutation policy: add, edit, block/unblock, delete, list
// ABOUTME: All operations require a main-admin session and spare the main-admin record

package roster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

// DeleteCredentialWarning is surfaced alongside every successful DeleteUser.
// Removing a roster record is step one of a two-step operation: the identity
// provider credential survives and must be revoked separately. This gap is
// documented behavior, not hidden.
const DeleteCredentialWarning = "user removed from the roster; the identity provider credential still exists and must be revoked separately"

// AddUser registers a secondary admin: a new identity provider account plus
// a roster record. Validation happens before any provider or store write.
func (s *Service) AddUser(ctx context.Context, sess *Session, name, mobile, email, password string) (*store.RosterRecord, error) {
	if err := requireMainAdmin(sess); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	mobile = strings.TrimSpace(mobile)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	case mobile == "":
		return nil, &ValidationError{Field: "mobile", Reason: "must not be empty"}
	case email == "":
		return nil, &ValidationError{Field: "email", Reason: "must not be empty"}
	case password == "":
		return nil, &ValidationError{Field: "password", Reason: "must not be empty"}
	case len(password) < 8:
		return nil, &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	case !identity.ValidEmail(email):
		return nil, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}

	principal, err := s.idp.CreateAccount(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailInUse) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	rec := &store.RosterRecord{
		ID:        principal.ID,
		Name:      name,
		Email:     email,
		Mobile:    mobile,
		CreatedBy: sess.Principal.ID,
	}
	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating roster record: %w", err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   store.AuditCreateUser,
		TargetID: rec.ID,
		Detail:   map[string]any{"name": name, "email": email},
	})
	return rec, nil
}

// EditUser updates the name and mobile fields of a secondary admin.
func (s *Service) EditUser(ctx context.Context, sess *Session, targetID, name, mobile string) error {
	if err := requireMainAdmin(sess); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	mobile = strings.TrimSpace(mobile)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if mobile == "" {
		return &ValidationError{Field: "mobile", Reason: "must not be empty"}
	}

	target, err := s.records.GetRecord(ctx, targetID)
	if err != nil {
		return fmt.Errorf("looking up target: %w", err)
	}
	if s.IsMainAdminRecord(target) {
		return ErrCannotModifyMainAdmin
	}

	if err := s.records.UpdateProfile(ctx, targetID, name, mobile, sess.Principal.ID); err != nil {
		return fmt.Errorf("updating roster record: %w", err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   store.AuditUpdateUser,
		TargetID: targetID,
		Detail:   map[string]any{"name": name, "mobile": mobile},
	})
	return nil
}

// SetBlocked blocks or unblocks a secondary admin. Writing the value the
// record already holds is a no-op success: the write is a normal overwrite
// and no error is reported.
func (s *Service) SetBlocked(ctx context.Context, sess *Session, targetID string, blocked bool) error {
	if err := requireMainAdmin(sess); err != nil {
		return err
	}

	target, err := s.records.GetRecord(ctx, targetID)
	if err != nil {
		return fmt.Errorf("looking up target: %w", err)
	}
	if s.IsMainAdminRecord(target) {
		return ErrCannotModifyMainAdmin
	}

	if err := s.records.SetBlocked(ctx, targetID, blocked, sess.Principal.ID); err != nil {
		return fmt.Errorf("updating roster record: %w", err)
	}

	action := store.AuditBlockUser
	if !blocked {
		action = store.AuditUnblockUser
	}
	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   action,
		TargetID: targetID,
	})
	return nil
}

// DeleteUser removes a secondary admin's roster record. The returned
// warning is non-empty on success and must be shown to the caller: the
// identity provider credential is intentionally not revoked here.
func (s *Service) DeleteUser(ctx context.Context, sess *Session, targetID string) (warning string, err error) {
	if err := requireMainAdmin(sess); err != nil {
		return "", err
	}

	target, err := s.records.GetRecord(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("looking up target: %w", err)
	}
	if s.IsMainAdminRecord(target) {
		return "", ErrCannotModifyMainAdmin
	}

	if err := s.records.DeleteRecord(ctx, targetID); err != nil {
		return "", fmt.Errorf("deleting roster record: %w", err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   store.AuditDeleteUser,
		TargetID: targetID,
		Detail:   map[string]any{"email": target.Email},
	})
	return DeleteCredentialWarning, nil
}

// ListUsers returns the roster partitioned for display: main-admin
// record(s) first (oldest first), then secondary admins newest first.
// Records with a missing creation time sort as oldest.
func (s *Service) ListUsers(ctx context.Context, sess *Session) ([]*store.RosterRecord, error) {
	if err := requireMainAdmin(sess); err != nil {
		return nil, err
	}

	records, err := s.records.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing roster records: %w", err)
	}

	var mains, subs []*store.RosterRecord
	for _, rec := range records {
		if s.IsMainAdminRecord(rec) {
			mains = append(mains, rec)
		} else {
			subs = append(subs, rec)
		}
	}

	sort.SliceStable(mains, func(i, j int) bool {
		return mains[i].CreatedAt.Before(mains[j].CreatedAt)
	})
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	return append(mains, subs...), nil
}
