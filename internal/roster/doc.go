// Package roster is the admin access and roster policy kernel.
//
// # Overview
//
// The kernel decides, for an authenticated principal, whether console
// access is granted and what capabilities the session holds, and it
// enforces the mutation policy over the roster of admin accounts. It sits
// between two collaborators it treats as black boxes: the identity
// provider (credentials, password policy, session revocation) and the
// roster store (the admin_users keyed collection with server-assigned
// timestamps).
//
// # Main-admin classification
//
// Exactly one logical main admin exists, identified by a fixed configured
// email OR by the record's is_main_admin flag. Classification is
// disjunctive: either predicate alone is sufficient. The two can diverge;
// the kernel never reconciles a mismatch, it sets Inconsistent on the
// decision and logs a warning so the divergence is detectable.
//
// # Entry points
//
// Authorize serves two entry points that intentionally differ for
// principals with no roster record:
//
//   - EntryLogin auto-provisions a default record (blocked=false,
//     is_main_admin=false, created_by=system sentinel). The provision
//     write is load-bearing: if it fails the login is denied.
//   - EntryAdminArea (re-validation inside the console) hard-denies.
//
// A blocked record is denied at both entry points regardless of credential
// validity, and its provider sessions are revoked.
//
// # Mutation policy
//
// AddUser, EditUser, SetBlocked, DeleteUser, and ListUsers require a
// main-admin session; the check lives in the kernel, not in the UI. The
// main-admin record itself is immutable through these operations.
// DeleteUser removes the roster record only: the identity provider
// credential survives, and the returned warning makes that explicit.
//
// # Concurrency
//
// Mutations carry no version check: concurrent admins racing on the same
// record resolve last-write-wins in store order. Within one session,
// operations are sequential.
package roster
