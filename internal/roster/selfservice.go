// ABOUTME: Main-admin self-service operations: change own email and password
// ABOUTME: Both require reauthentication against the identity provider

package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

// ChangeOwnEmail updates the main admin's email at the identity provider
// and mirrors it into the roster record. The current password must
// reauthenticate first.
func (s *Service) ChangeOwnEmail(ctx context.Context, sess *Session, newEmail, currentPassword string) error {
	if err := requireMainAdmin(sess); err != nil {
		return err
	}

	if !identity.ValidEmail(newEmail) {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}

	if err := s.idp.Reauthenticate(ctx, sess.Principal.ID, currentPassword); err != nil {
		if errors.Is(err, identity.ErrWrongPassword) {
			return ErrReauthenticationFailed
		}
		return fmt.Errorf("reauthenticating: %w", err)
	}

	if err := s.idp.UpdateEmail(ctx, sess.Principal.ID, newEmail); err != nil {
		if errors.Is(err, identity.ErrEmailInUse) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("updating provider email: %w", err)
	}

	if err := s.records.UpdateEmail(ctx, sess.Principal.ID, newEmail, sess.Principal.ID); err != nil {
		return fmt.Errorf("updating roster email: %w", err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   store.AuditChangeEmail,
		TargetID: sess.Principal.ID,
	})
	return nil
}

// ChangeOwnPassword updates the main admin's password at the identity
// provider. The roster record is not touched.
func (s *Service) ChangeOwnPassword(ctx context.Context, sess *Session, newPassword, currentPassword string) error {
	if err := requireMainAdmin(sess); err != nil {
		return err
	}

	if len(newPassword) < 6 {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	if err := s.idp.Reauthenticate(ctx, sess.Principal.ID, currentPassword); err != nil {
		if errors.Is(err, identity.ErrWrongPassword) {
			return ErrReauthenticationFailed
		}
		return fmt.Errorf("reauthenticating: %w", err)
	}

	if err := s.idp.UpdatePassword(ctx, sess.Principal.ID, newPassword); err != nil {
		return fmt.Errorf("updating provider password: %w", err)
	}

	s.appendAudit(ctx, &store.AuditEntry{
		ActorID:  sess.Principal.ID,
		Action:   store.AuditChangePassword,
		TargetID: sess.Principal.ID,
	})
	return nil
}
