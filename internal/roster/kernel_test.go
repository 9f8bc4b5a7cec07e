// ABOUTME: Shared test fakes and fixtures for the roster kernel
// ABOUTME: In-memory stores and identity provider with error injection

package roster

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/store"
)

const mainAdminEmail = "main@example.com"

// fakeRecords is an in-memory RosterStore with error injection.
type fakeRecords struct {
	mu   sync.Mutex
	recs map[string]*store.RosterRecord

	getErr    error
	createErr error
	touchErr  error
	touched   []string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: make(map[string]*store.RosterRecord)}
}

func (f *fakeRecords) put(rec *store.RosterRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[rec.ID] = &cp
}

func (f *fakeRecords) GetRecord(_ context.Context, id string) (*store.RosterRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) CreateRecord(_ context.Context, rec *store.RosterRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.recs[rec.ID]; ok {
		return store.ErrRecordExists
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeRecords) UpdateProfile(_ context.Context, id, name, mobile, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Name = name
	rec.Mobile = mobile
	rec.UpdatedBy = updatedBy
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeRecords) UpdateEmail(_ context.Context, id, email, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Email = email
	rec.UpdatedBy = updatedBy
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeRecords) SetBlocked(_ context.Context, id string, blocked bool, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Blocked = blocked
	rec.UpdatedBy = updatedBy
	return nil
}

func (f *fakeRecords) TouchLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	rec, ok := f.recs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.LastLogin = time.Now().UTC()
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeRecords) DeleteRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

func (f *fakeRecords) ListRecords(_ context.Context) ([]*store.RosterRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.RosterRecord
	for _, rec := range f.recs {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRecords) CountRecords(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs), nil
}

// fakeIDP is an in-memory identity.Provider tracking calls.
type fakeIDP struct {
	mu        sync.Mutex
	accounts  map[string]*identity.Principal // by id
	passwords map[string]string              // by id

	nextID    int
	createErr error
	reauthErr error
	revokeErr error
	revoked   []string
	emails    map[string]string // id -> updated email
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{
		accounts:  make(map[string]*identity.Principal),
		passwords: make(map[string]string),
		emails:    make(map[string]string),
	}
}

func (f *fakeIDP) add(id, email, password string) *identity.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &identity.Principal{ID: id, Email: email}
	f.accounts[id] = p
	f.passwords[id] = password
	return p
}

func (f *fakeIDP) SignIn(_ context.Context, email, password string) (*identity.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.accounts {
		if p.Email == email {
			if f.passwords[id] != password {
				return nil, identity.ErrWrongPassword
			}
			return p, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

func (f *fakeIDP) Reauthenticate(_ context.Context, id, currentPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reauthErr != nil {
		return f.reauthErr
	}
	if f.passwords[id] != currentPassword {
		return identity.ErrWrongPassword
	}
	return nil
}

func (f *fakeIDP) CreateAccount(_ context.Context, email, password string) (*identity.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, p := range f.accounts {
		if p.Email == email {
			return nil, identity.ErrEmailInUse
		}
	}
	f.nextID++
	id := "idp-" + string(rune('a'+f.nextID))
	p := &identity.Principal{ID: id, Email: email}
	f.accounts[id] = p
	f.passwords[id] = password
	return p, nil
}

func (f *fakeIDP) UpdateEmail(_ context.Context, id, newEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for otherID, p := range f.accounts {
		if otherID != id && p.Email == newEmail {
			return identity.ErrEmailInUse
		}
	}
	p, ok := f.accounts[id]
	if !ok {
		return identity.ErrAccountNotFound
	}
	p.Email = newEmail
	f.emails[id] = newEmail
	return nil
}

func (f *fakeIDP) UpdatePassword(_ context.Context, id, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return identity.ErrAccountNotFound
	}
	f.passwords[id] = newPassword
	return nil
}

func (f *fakeIDP) RevokeSessions(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeIDP) Lookup(_ context.Context, id string) (*identity.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.accounts[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	return p, nil
}

// fakeAudit is an in-memory AuditStore.
type fakeAudit struct {
	mu      sync.Mutex
	entries []*store.AuditEntry
}

func (f *fakeAudit) AppendAudit(_ context.Context, e *store.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) ListAudit(_ context.Context, limit int) ([]*store.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// newTestKernel wires a kernel over fresh fakes.
func newTestKernel() (*Service, *fakeRecords, *fakeIDP, *fakeAudit) {
	records := newFakeRecords()
	idp := newFakeIDP()
	audit := &fakeAudit{}
	svc := New(records, idp, audit, Config{MainAdminEmail: mainAdminEmail})
	return svc, records, idp, audit
}

// mainAdminSession returns a session carrying main-admin privileges.
func mainAdminSession() *Session {
	return &Session{
		Principal: &identity.Principal{ID: "main-1", Email: mainAdminEmail},
		Role:      RoleMainAdmin,
		Record: &store.RosterRecord{
			ID:          "main-1",
			Name:        "Main Admin",
			Email:       mainAdminEmail,
			IsMainAdmin: true,
		},
	}
}

// secondarySession returns a session for a secondary admin.
func secondarySession() *Session {
	return &Session{
		Principal: &identity.Principal{ID: "user-2", Email: "second@example.com"},
		Role:      RoleAdmin,
		Record: &store.RosterRecord{
			ID:    "user-2",
			Name:  "Second Admin",
			Email: "second@example.com",
		},
	}
}
