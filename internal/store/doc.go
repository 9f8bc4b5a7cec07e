// Package store provides persistent storage for helmgate using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with specialized
// interfaces:
//
//   - RosterStore: Roster records (the admin_users keyed collection)
//   - CredentialStore: Identity provider accounts
//   - SessionStore: Browser console sessions
//   - AuditStore: Append-only audit log for roster mutations
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries.
//
// # Data Models
//
//   - RosterRecord: Authorization/profile record keyed by principal identifier.
//     Blocked records are denied console access; the main-admin record is
//     immutable through the roster mutation operations.
//   - Credential: Identity provider account (email + bcrypt hash). Roster
//     record lifetime is independent of credential lifetime: deleting a
//     roster record does not remove the credential.
//   - ConsoleSession: Cookie-based browser session.
//   - AuditEntry: One roster mutation with actor, action, and target.
//
// # Timestamps
//
// All timestamps (created_at, updated_at, last_login) are assigned by the
// store on write, never accepted from the caller, and stored as RFC3339 UTC.
//
// # Concurrency
//
// Mutations are last-write-wins. There is no version check before an update
// or delete, so two admins racing on the same record resolve in store order.
// This matches the semantics of the backing database and is intentional.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") or a t.TempDir() path for tests.
package store
