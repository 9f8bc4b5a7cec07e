// ABOUTME: Credential store methods for identity provider accounts
// ABOUTME: SQLite persistence for email/password-hash credentials

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateCredential inserts a new identity provider account.
func (s *SQLiteStore) CreateCredential(ctx context.Context, cred *Credential) error {
	query := `
		INSERT INTO credentials (id, email, password_hash, disabled, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	createdAt := now()
	_, err := s.db.ExecContext(ctx, query,
		cred.ID,
		cred.Email,
		cred.PasswordHash,
		boolToInt(cred.Disabled),
		createdAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting credential: %w", err)
	}

	cred.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.logger.Info("created credential", "id", cred.ID, "email", cred.Email)
	return nil
}

// GetCredential retrieves a credential by identifier.
func (s *SQLiteStore) GetCredential(ctx context.Context, id string) (*Credential, error) {
	query := `
		SELECT id, email, password_hash, disabled, created_at
		FROM credentials
		WHERE id = ?
	`
	return s.scanCredential(s.db.QueryRowContext(ctx, query, id))
}

// GetCredentialByEmail retrieves a credential by email address.
func (s *SQLiteStore) GetCredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	query := `
		SELECT id, email, password_hash, disabled, created_at
		FROM credentials
		WHERE email = ?
	`
	return s.scanCredential(s.db.QueryRowContext(ctx, query, email))
}

// UpdateCredentialEmail changes the email of a credential.
func (s *SQLiteStore) UpdateCredentialEmail(ctx context.Context, id, email string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE credentials SET email = ? WHERE id = ?", email, id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating credential email: %w", err)
	}
	return requireOneRow(result)
}

// UpdateCredentialPassword changes the password hash of a credential.
func (s *SQLiteStore) UpdateCredentialPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE credentials SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating credential password: %w", err)
	}

	if err := requireOneRow(result); err != nil {
		return err
	}
	s.logger.Info("updated credential password", "id", id)
	return nil
}

// DeleteCredential removes an identity provider account.
func (s *SQLiteStore) DeleteCredential(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return requireOneRow(result)
}

func (s *SQLiteStore) scanCredential(row *sql.Row) (*Credential, error) {
	var cred Credential
	var disabled int
	var createdAtStr string

	err := row.Scan(&cred.ID, &cred.Email, &cred.PasswordHash, &disabled, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	cred.Disabled = disabled != 0
	cred.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &cred, nil
}

func requireOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
