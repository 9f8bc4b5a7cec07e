// ABOUTME: Tests for the session gate
// ABOUTME: Covers auto-provisioning, blocked denial with forced sign-out, and role classification

package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

func TestAuthorize_LoginAutoProvisions(t *testing.T) {
	svc, records, _, audit := newTestKernel()
	ctx := context.Background()

	principal := &identity.Principal{ID: "new-1", Email: "fresh.admin@example.com"}
	decision, err := svc.Authorize(ctx, principal, EntryLogin)
	require.NoError(t, err)

	assert.True(t, decision.Granted)
	assert.Equal(t, RoleAdmin, decision.Role)

	rec, err := records.GetRecord(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh.admin", rec.Name, "name defaults to the email local part")
	assert.Equal(t, "fresh.admin@example.com", rec.Email)
	assert.Equal(t, "N/A", rec.Mobile)
	assert.Equal(t, store.SystemActor, rec.CreatedBy)
	assert.False(t, rec.Blocked)
	assert.False(t, rec.IsMainAdmin)

	assert.Contains(t, audit.actions(), store.AuditAutoProvision)
}

func TestAuthorize_AdminAreaDoesNotProvision(t *testing.T) {
	svc, records, _, _ := newTestKernel()
	ctx := context.Background()

	principal := &identity.Principal{ID: "new-1", Email: "fresh@example.com"}
	decision, err := svc.Authorize(ctx, principal, EntryAdminArea)
	require.NoError(t, err)

	assert.False(t, decision.Granted)
	assert.Equal(t, DenyNotRegistered, decision.Reason)

	_, err = records.GetRecord(ctx, "new-1")
	assert.ErrorIs(t, err, store.ErrNotFound, "admin-area entry must not create records")
}

func TestAuthorize_ProvisionFailureDeniesLogin(t *testing.T) {
	svc, records, _, _ := newTestKernel()
	records.createErr = errors.New("disk full")

	principal := &identity.Principal{ID: "new-1", Email: "fresh@example.com"}
	_, err := svc.Authorize(context.Background(), principal, EntryLogin)
	assert.ErrorIs(t, err, ErrProvisioningFailed)
}

func TestAuthorize_ProvisionTolerateConcurrentCreate(t *testing.T) {
	svc, records, _, _ := newTestKernel()
	records.createErr = store.ErrRecordExists

	// A racing first login already created the record; the login still works.
	principal := &identity.Principal{ID: "new-1", Email: "fresh@example.com"}
	decision, err := svc.Authorize(context.Background(), principal, EntryLogin)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
}

func TestAuthorize_BlockedDeniedAndSignedOut(t *testing.T) {
	svc, records, idp, _ := newTestKernel()
	ctx := context.Background()

	records.put(&store.RosterRecord{ID: "user-1", Email: "jo@example.com", Blocked: true})
	idp.add("user-1", "jo@example.com", "pw")

	for _, entry := range []EntryPoint{EntryLogin, EntryAdminArea} {
		decision, err := svc.Authorize(ctx, &identity.Principal{ID: "user-1", Email: "jo@example.com"}, entry)
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, DenyBlocked, decision.Reason)
	}

	assert.Contains(t, idp.revoked, "user-1", "blocked principal must be force signed out")
}

func TestAuthorize_BlockedDenialSurvivesRevokeFailure(t *testing.T) {
	svc, records, idp, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "user-1", Email: "jo@example.com", Blocked: true})
	idp.revokeErr = errors.New("sessions unavailable")

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-1", Email: "jo@example.com"}, EntryLogin)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, DenyBlocked, decision.Reason)
}

func TestAuthorize_StoreFailureIsNotDenial(t *testing.T) {
	svc, records, _, _ := newTestKernel()
	records.getErr = errors.New("database locked")

	_, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-1", Email: "jo@example.com"}, EntryAdminArea)
	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestAuthorize_MainAdminByConfiguredEmail(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	// Record flag is false but the email matches the configured main admin
	records.put(&store.RosterRecord{ID: "main-1", Email: mainAdminEmail})

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "main-1", Email: mainAdminEmail}, EntryAdminArea)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, RoleMainAdmin, decision.Role)
	assert.True(t, decision.Inconsistent, "email match without record flag is a detectable mismatch")
}

func TestAuthorize_MainAdminByRecordFlag(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "user-9", Email: "other@example.com", IsMainAdmin: true})

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-9", Email: "other@example.com"}, EntryAdminArea)
	require.NoError(t, err)
	assert.Equal(t, RoleMainAdmin, decision.Role)
	assert.True(t, decision.Inconsistent)
}

func TestAuthorize_MainAdminConsistent(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "main-1", Email: mainAdminEmail, IsMainAdmin: true})

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "main-1", Email: mainAdminEmail}, EntryAdminArea)
	require.NoError(t, err)
	assert.Equal(t, RoleMainAdmin, decision.Role)
	assert.False(t, decision.Inconsistent)
}

func TestAuthorize_MainAdminEmailCaseInsensitive(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "main-1", Email: "Main@Example.COM", IsMainAdmin: true})

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "main-1", Email: "Main@Example.COM"}, EntryAdminArea)
	require.NoError(t, err)
	assert.Equal(t, RoleMainAdmin, decision.Role)
	assert.False(t, decision.Inconsistent)
}

func TestAuthorize_LoginStampsLastLogin(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "user-1", Email: "jo@example.com"})

	_, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-1", Email: "jo@example.com"}, EntryLogin)
	require.NoError(t, err)
	assert.Contains(t, records.touched, "user-1")
}

func TestAuthorize_AdminAreaDoesNotStampLastLogin(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "user-1", Email: "jo@example.com"})

	_, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-1", Email: "jo@example.com"}, EntryAdminArea)
	require.NoError(t, err)
	assert.Empty(t, records.touched)
}

func TestAuthorize_LastLoginFailureDoesNotBlockAccess(t *testing.T) {
	svc, records, _, _ := newTestKernel()

	records.put(&store.RosterRecord{ID: "user-1", Email: "jo@example.com"})
	records.touchErr = errors.New("write failed")

	decision, err := svc.Authorize(context.Background(), &identity.Principal{ID: "user-1", Email: "jo@example.com"}, EntryLogin)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "jo.admin", localPart("jo.admin@example.com"))
	assert.Equal(t, "weird", localPart("weird"))
}
