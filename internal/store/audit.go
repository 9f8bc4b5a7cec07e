// ABOUTME: Audit log store methods for tracking roster mutations
// ABOUTME: Records who did what to which roster record for after-the-fact review

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendAudit appends a new entry to the audit log.
// Generates ID and timestamp if not set.
func (s *SQLiteStore) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	var detailJSON sql.NullString
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		detailJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO audit_log (audit_id, actor_id, action, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.ActorID,
		e.Action,
		e.TargetID,
		e.At.UTC().Format(time.RFC3339),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit entries, newest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT audit_id, actor_id, action, target_id, ts, detail_json
		FROM audit_log
		ORDER BY ts DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var tsStr string
		var detailJSON sql.NullString

		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &tsStr, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.At, err = time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing ts: %w", err)
		}

		if detailJSON.Valid && detailJSON.String != "" {
			if err := json.Unmarshal([]byte(detailJSON.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling audit detail: %w", err)
			}
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return entries, nil
}
