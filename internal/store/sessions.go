// ABOUTME: Console session store methods for cookie-based browser auth
// ABOUTME: Create, lookup, and expiry cleanup of admin console sessions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession creates a new console session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *ConsoleSession) error {
	query := `
		INSERT INTO console_sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting console session: %w", err)
	}

	s.logger.Debug("created console session", "id", session.ID, "user_id", session.UserID)
	return nil
}

// GetSession retrieves a valid (non-expired) console session.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*ConsoleSession, error) {
	query := `
		SELECT id, user_id, created_at, expires_at
		FROM console_sessions
		WHERE id = ? AND expires_at > ?
	`

	var session ConsoleSession
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id, now()).Scan(
		&session.ID,
		&session.UserID,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying console session: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &session, nil
}

// DeleteSession deletes a console session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM console_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting console session: %w", err)
	}
	return nil
}

// DeleteSessionsForUser removes every console session belonging to a user.
// Used to force sign-out when a roster record is blocked.
func (s *SQLiteStore) DeleteSessionsForUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM console_sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting sessions for user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Info("revoked console sessions", "user_id", userID, "count", rowsAffected)
	}
	return nil
}

// DeleteExpiredSessions removes all expired console sessions.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM console_sessions WHERE expires_at <= ?", now())
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired console sessions", "count", rowsAffected)
	}
	return nil
}
