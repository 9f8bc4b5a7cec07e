// ABOUTME: SQLite implementation of the helmgate stores using modernc.org/sqlite
// ABOUTME: Provides roster, credential, session, and audit persistence with schema bootstrap

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements RosterStore, CredentialStore, SessionStore, and
// AuditStore on a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ RosterStore     = (*SQLiteStore)(nil)
	_ CredentialStore = (*SQLiteStore)(nil)
	_ SessionStore    = (*SQLiteStore)(nil)
	_ AuditStore      = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		-- Roster records: one per registered admin, keyed by the identity
		-- provider identifier. Timestamps are RFC3339 UTC, assigned by the
		-- store on write.
		CREATE TABLE IF NOT EXISTS admin_users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL,
			mobile        TEXT NOT NULL,
			blocked       INTEGER NOT NULL DEFAULT 0,
			is_main_admin INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			updated_at    TEXT,
			last_login    TEXT,
			created_by    TEXT NOT NULL,
			updated_by    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_admin_users_email ON admin_users(email);
		CREATE INDEX IF NOT EXISTS idx_admin_users_created ON admin_users(created_at);

		-- Identity provider accounts. Independent lifetime from admin_users:
		-- deleting a roster record leaves the credential in place.
		CREATE TABLE IF NOT EXISTS credentials (
			id            TEXT PRIMARY KEY,
			email         TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			disabled      INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_credentials_email ON credentials(email);

		-- Browser console sessions (cookie-based)
		CREATE TABLE IF NOT EXISTS console_sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_console_sessions_user ON console_sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_console_sessions_expires ON console_sessions(expires_at);

		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id    TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			action      TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT,

			CHECK (action IN (
				'auto_provision',
				'create_user',
				'update_user',
				'block_user',
				'unblock_user',
				'delete_user',
				'change_email',
				'change_password'
			))
		);

		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// now returns the store's server-assigned timestamp in storage format.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime parses a stored timestamp, returning the zero time for NULL.
func parseTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v.String)
}

// GetRecord retrieves a roster record by identifier.
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*RosterRecord, error) {
	query := `
		SELECT id, name, email, mobile, blocked, is_main_admin,
		       created_at, updated_at, last_login, created_by, updated_by
		FROM admin_users
		WHERE id = ?
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying roster record: %w", err)
	}
	return rec, nil
}

// CreateRecord inserts a new roster record. The store assigns created_at.
func (s *SQLiteStore) CreateRecord(ctx context.Context, rec *RosterRecord) error {
	query := `
		INSERT INTO admin_users (id, name, email, mobile, blocked, is_main_admin, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := now()
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Email,
		rec.Mobile,
		boolToInt(rec.Blocked),
		boolToInt(rec.IsMainAdmin),
		createdAt,
		rec.CreatedBy,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRecordExists
		}
		return fmt.Errorf("inserting roster record: %w", err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.logger.Info("created roster record", "id", rec.ID, "email", rec.Email, "created_by", rec.CreatedBy)
	return nil
}

// UpdateProfile updates the name and mobile fields of a roster record.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id, name, mobile, updatedBy string) error {
	query := `UPDATE admin_users SET name = ?, mobile = ?, updated_at = ?, updated_by = ? WHERE id = ?`
	return s.execOnRecord(ctx, query, name, mobile, now(), updatedBy, id)
}

// UpdateEmail updates the email field of a roster record.
func (s *SQLiteStore) UpdateEmail(ctx context.Context, id, email, updatedBy string) error {
	query := `UPDATE admin_users SET email = ?, updated_at = ?, updated_by = ? WHERE id = ?`
	return s.execOnRecord(ctx, query, email, now(), updatedBy, id)
}

// SetBlocked updates the blocked flag of a roster record. Writing the
// current value again is a normal overwrite, not an error.
func (s *SQLiteStore) SetBlocked(ctx context.Context, id string, blocked bool, updatedBy string) error {
	query := `UPDATE admin_users SET blocked = ?, updated_at = ?, updated_by = ? WHERE id = ?`
	return s.execOnRecord(ctx, query, boolToInt(blocked), now(), updatedBy, id)
}

// TouchLastLogin stamps the last_login timestamp of a roster record.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id string) error {
	query := `UPDATE admin_users SET last_login = ? WHERE id = ?`
	return s.execOnRecord(ctx, query, now(), id)
}

// DeleteRecord removes a roster record. The identity provider credential,
// if any, is left in place.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM admin_users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting roster record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted roster record", "id", id)
	return nil
}

// ListRecords returns all roster records ordered by creation time descending.
func (s *SQLiteStore) ListRecords(ctx context.Context) ([]*RosterRecord, error) {
	query := `
		SELECT id, name, email, mobile, blocked, is_main_admin,
		       created_at, updated_at, last_login, created_by, updated_by
		FROM admin_users
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying roster records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*RosterRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning roster record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roster records: %w", err)
	}
	return records, nil
}

// CountRecords returns the number of roster records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting roster records: %w", err)
	}
	return count, nil
}

// execOnRecord runs an UPDATE that must affect exactly one roster record.
func (s *SQLiteStore) execOnRecord(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating roster record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*RosterRecord, error) {
	var rec RosterRecord
	var blocked, isMainAdmin int
	var createdAtStr string
	var updatedAt, lastLogin, updatedBy sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Email,
		&rec.Mobile,
		&blocked,
		&isMainAdmin,
		&createdAtStr,
		&updatedAt,
		&lastLogin,
		&rec.CreatedBy,
		&updatedBy,
	)
	if err != nil {
		return nil, err
	}

	rec.Blocked = blocked != 0
	rec.IsMainAdmin = isMainAdmin != 0
	rec.UpdatedBy = updatedBy.String

	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	rec.LastLogin, err = parseTime(lastLogin)
	if err != nil {
		return nil, fmt.Errorf("parsing last_login: %w", err)
	}

	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}
