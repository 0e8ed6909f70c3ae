// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"time"

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

var _ StorageInterface = (*Storage)(nil)

// StorageInterface is the full persistence surface, services depend on the subset they use
type StorageInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error

	SoftDelete(ctx context.Context, entity Entity, pkids ...int64) (int64, error)
	Restore(ctx context.Context, entity Entity, pkids ...int64) (int64, error)
	HardDelete(ctx context.Context, entity Entity, pkids ...int64) (int64, error)

	GetIdentityByEmail(ctx context.Context, email string, scope softdelete.Scope) (*types.Identity, error)
	GetIdentityByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Identity, error)
	GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error)
	CreateIdentity(ctx context.Context, i *types.Identity) (*types.Identity, error)
	ActivateIdentity(ctx context.Context, pkid int64) error
	SetPassword(ctx context.Context, pkid int64, hash string) error
	SetLastLogin(ctx context.Context, pkid int64, at time.Time) error
	UpdateIdentityEmail(ctx context.Context, pkid int64, email string) error

	GetOrganizationByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error)
	GetOrganizationByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Organization, error)
	AcronymExists(ctx context.Context, acronym string) (bool, error)
	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
	UpdateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)

	CreateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error)
	CaregiverExistsForEmail(ctx context.Context, email string) (bool, error)
	GetCaregiverByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Caregiver, error)
	GetCaregiverByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Caregiver, error)
	ListCaregivers(ctx context.Context, orgPkID int64, scope softdelete.Scope, page, size int64) ([]*types.Caregiver, error)
	UpdateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error)

	CreatePatient(ctx context.Context, p *types.Patient) (*types.Patient, error)
	GetPatientByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Patient, error)
	GetPatientByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Patient, error)
	ListPatients(ctx context.Context, orgPkID int64, scope softdelete.Scope, search string, page, size int64) ([]*types.Patient, error)
	ListPatientsByPkIDs(ctx context.Context, pkids []int64) ([]*types.Patient, error)
	UpdatePatient(ctx context.Context, p *types.Patient) (*types.Patient, error)
	UpsertMedicalRecord(ctx context.Context, r *types.MedicalRecord) (*types.MedicalRecord, error)
	GetMedicalRecord(ctx context.Context, patientPkID int64, scope softdelete.Scope) (*types.MedicalRecord, error)

	CreateDiagnosis(ctx context.Context, d *types.Diagnosis) (*types.Diagnosis, error)
	UpdateDiagnosis(ctx context.Context, d *types.Diagnosis) (*types.Diagnosis, error)
	GetDiagnosisByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Diagnosis, error)
	ListDiagnosesByPatient(ctx context.Context, patientPkID int64, search, ordering string) ([]*types.Diagnosis, error)
	ListLatestDiagnoses(ctx context.Context, orgPkID int64) ([]*types.Diagnosis, error)
	UpsertVitalSign(ctx context.Context, v *types.VitalSign) (*types.VitalSign, error)
	GetVitalSign(ctx context.Context, diagnosisPkID int64, scope softdelete.Scope) (*types.VitalSign, error)
	ListVitalSigns(ctx context.Context, diagnosisPkIDs []int64) ([]*types.VitalSign, error)

	GetInviteForUpdate(ctx context.Context, orgPkID int64, email string) (*types.CaregiverInvite, error)
	GetInviteByToken(ctx context.Context, token string, forUpdate bool) (*types.CaregiverInvite, error)
	GetInviteByID(ctx context.Context, id string) (*types.CaregiverInvite, error)
	CreateInvite(ctx context.Context, i *types.CaregiverInvite) (*types.CaregiverInvite, error)
	RotateInvite(ctx context.Context, i *types.CaregiverInvite, expiresAt time.Time, invitedBy *int64) (*types.CaregiverInvite, error)
	SetInviteStatus(ctx context.Context, pkid int64, status types.InviteStatus) error
}
