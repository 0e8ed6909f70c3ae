// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
)

// memStorage is an in memory StorageInterface. WithTx serializes transactions and rolls
// the state back on error, which models row locks held until commit.
type memStorage struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq        int64
	identities map[int64]types.Identity
	orgs       map[int64]types.Organization
	caregivers map[int64]types.Caregiver
	invites    map[int64]types.CaregiverInvite
}

func newMemStorage() *memStorage {
	return &memStorage{
		identities: map[int64]types.Identity{},
		orgs:       map[int64]types.Organization{},
		caregivers: map[int64]types.Caregiver{},
		invites:    map[int64]types.CaregiverInvite{},
	}
}

func duplicate(constraint string) error {
	return storage.WrapDuplicateKeyError(&pgconn.PgError{Code: "23505", ConstraintName: constraint}, "memStorage")
}

func visible(m softdelete.Model, scope softdelete.Scope) bool {
	switch scope {
	case softdelete.Dead:
		return m.IsDeleted
	case softdelete.AllWithDeleted:
		return true
	default:
		return !m.IsDeleted
	}
}

func (m *memStorage) next() int64 {
	m.seq++
	return m.seq
}

func (m *memStorage) WithTx(ctx context.Context, fn func(context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	identities, orgs, caregivers, invites := clone(m.identities), clone(m.orgs), clone(m.caregivers), clone(m.invites)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.identities, m.orgs, m.caregivers, m.invites = identities, orgs, caregivers, invites
		m.mu.Unlock()
		return err
	}

	return nil
}

func clone[T any](in map[int64]T) map[int64]T {
	out := make(map[int64]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStorage) addOrganization(name, acronym string) *types.Organization {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner := types.Identity{PkID: m.next(), ID: uuid.NewString(), Email: strings.ToLower(acronym) + "@org.example.com", Role: types.RoleOrganization, IsActive: true, IsVerified: true}
	m.identities[owner.PkID] = owner

	o := types.Organization{PkID: m.next(), ID: uuid.NewString(), UserPkID: owner.PkID, Name: name, Acronym: acronym, Email: owner.Email}
	m.orgs[o.PkID] = o

	return &o
}

func (m *memStorage) owner(org *types.Organization) *types.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.identities[org.UserPkID]
	return &i
}

func (m *memStorage) GetIdentityByEmail(_ context.Context, email string, scope softdelete.Scope) (*types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, i := range m.identities {
		if strings.EqualFold(i.Email, email) && visible(i.Model, scope) {
			return &i, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *memStorage) CreateIdentity(_ context.Context, i *types.Identity) (*types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.identities {
		if strings.EqualFold(existing.Email, i.Email) {
			return nil, duplicate(storage.ConstraintIdentityEmail)
		}
	}

	created := *i
	created.PkID = m.next()
	created.ID = uuid.NewString()
	created.Email = strings.ToLower(i.Email)
	m.identities[created.PkID] = created

	return &created, nil
}

func (m *memStorage) GetOrganizationByPkID(_ context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orgs[pkid]
	if !ok || !visible(o.Model, scope) {
		return nil, storage.ErrNotFound
	}

	return &o, nil
}

func (m *memStorage) CreateCaregiver(_ context.Context, c *types.Caregiver) (*types.Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.caregivers {
		if existing.StaffNumber == c.StaffNumber {
			return nil, duplicate(storage.ConstraintCaregiverStaffNumber)
		}
		if existing.UserPkID == c.UserPkID {
			return nil, duplicate(storage.ConstraintCaregiverUser)
		}
	}

	created := *c
	created.PkID = m.next()
	created.ID = uuid.NewString()
	m.caregivers[created.PkID] = created

	return &created, nil
}

func (m *memStorage) CaregiverExistsForEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.caregivers {
		if strings.EqualFold(m.identities[c.UserPkID].Email, email) {
			return true, nil
		}
	}

	return false, nil
}

func (m *memStorage) caregiverByEmail(email string) *types.Caregiver {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.caregivers {
		if strings.EqualFold(m.identities[c.UserPkID].Email, email) {
			return &c
		}
	}

	return nil
}

func (m *memStorage) GetInviteForUpdate(_ context.Context, orgPkID int64, email string) (*types.CaregiverInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, i := range m.invites {
		if i.OrganizationPkID == orgPkID && strings.EqualFold(i.Email, email) {
			return m.withOrgName(i), nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *memStorage) GetInviteByToken(_ context.Context, token string, _ bool) (*types.CaregiverInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, i := range m.invites {
		if i.Token == token {
			return m.withOrgName(i), nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *memStorage) withOrgName(i types.CaregiverInvite) *types.CaregiverInvite {
	i.OrganizationName = m.orgs[i.OrganizationPkID].Name
	return &i
}

func (m *memStorage) invite(pkid int64) types.CaregiverInvite {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.invites[pkid]
}

func (m *memStorage) setInviteExpiry(pkid int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.invites[pkid]
	i.ExpiresAt = at
	m.invites[pkid] = i
}

func (m *memStorage) CreateInvite(_ context.Context, i *types.CaregiverInvite) (*types.CaregiverInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.invites {
		if existing.OrganizationPkID == i.OrganizationPkID && strings.EqualFold(existing.Email, i.Email) {
			return nil, duplicate(storage.ConstraintInviteEmailOrg)
		}
	}

	created := *i
	created.PkID = m.next()
	created.ID = uuid.NewString()
	created.Token = uuid.NewString()
	created.Status = types.InviteStatusPending
	created.ResendCount = 0
	m.invites[created.PkID] = created

	return m.withOrgName(created), nil
}

func (m *memStorage) RotateInvite(_ context.Context, i *types.CaregiverInvite, expiresAt time.Time, invitedBy *int64) (*types.CaregiverInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.invites[i.PkID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	stored.Token = uuid.NewString()
	stored.Status = types.InviteStatusPending
	stored.ExpiresAt = expiresAt
	stored.ResendCount++
	stored.InvitedByPkID = invitedBy
	m.invites[i.PkID] = stored

	return m.withOrgName(stored), nil
}

func (m *memStorage) SetInviteStatus(_ context.Context, pkid int64, status types.InviteStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.invites[pkid]
	if !ok {
		return storage.ErrNotFound
	}

	stored.Status = status
	m.invites[pkid] = stored

	return nil
}

var _ StorageInterface = (*memStorage)(nil)
