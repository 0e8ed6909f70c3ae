// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/objectstore"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

type ServiceInterface interface {
	GetOrganization(ctx context.Context, caller *tenant.Context) (*OrganizationView, error)
	UpdateOrganization(ctx context.Context, caller *tenant.Context, req OrganizationUpdate) (*OrganizationView, error)
	DeleteOrganization(ctx context.Context, caller *tenant.Context) error
	RestoreOrganization(ctx context.Context, userID string) (*OrganizationView, error)

	ListCaregivers(ctx context.Context, caller *tenant.Context, scope softdelete.Scope, page, size int64) ([]*CaregiverView, error)
	GetCaregiver(ctx context.Context, caller *tenant.Context, id string) (*CaregiverView, error)
	UpdateCaregiver(ctx context.Context, caller *tenant.Context, id string, req CaregiverUpdate) (*CaregiverView, error)
	DeleteCaregiver(ctx context.Context, caller *tenant.Context, id string) error
	RestoreCaregiver(ctx context.Context, caller *tenant.Context, id string) (*CaregiverView, error)
	HardDeleteCaregiver(ctx context.Context, caller *tenant.Context, id string) error

	RegisterPatient(ctx context.Context, caller *tenant.Context, req PatientRequest) (*PatientView, error)
	ListPatients(ctx context.Context, caller *tenant.Context, scope softdelete.Scope, search string, page, size int64) ([]*PatientView, error)
	GetPatient(ctx context.Context, caller *tenant.Context, id string) (*PatientView, error)
	UpdatePatient(ctx context.Context, caller *tenant.Context, id string, req PatientUpdate) (*PatientView, error)
	DeletePatient(ctx context.Context, caller *tenant.Context, id string) error
	RestorePatient(ctx context.Context, caller *tenant.Context, id string) (*PatientView, error)
	HardDeletePatient(ctx context.Context, caller *tenant.Context, id string) error

	CreateDiagnosis(ctx context.Context, caller *tenant.Context, req DiagnosisRequest) (*DiagnosisView, error)
	UpdateDiagnosis(ctx context.Context, caller *tenant.Context, id string, req DiagnosisUpdate) (*DiagnosisView, error)
	GetDiagnosis(ctx context.Context, caller *tenant.Context, id string) (*DiagnosisView, error)
	ListDiagnoses(ctx context.Context, caller *tenant.Context, patientID, search, ordering string) ([]*DiagnosisView, error)
	ListLatestDiagnoses(ctx context.Context, caller *tenant.Context) ([]*LatestDiagnosisView, error)
	DeleteDiagnosis(ctx context.Context, caller *tenant.Context, id string) error
	RestoreDiagnosis(ctx context.Context, caller *tenant.Context, id string) (*DiagnosisView, error)

	PresignUpload(ctx context.Context, caller *tenant.Context, kind, contentType string) (*objectstore.Upload, error)
}

type StorageInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error

	SoftDelete(ctx context.Context, entity storage.Entity, pkids ...int64) (int64, error)
	Restore(ctx context.Context, entity storage.Entity, pkids ...int64) (int64, error)
	HardDelete(ctx context.Context, entity storage.Entity, pkids ...int64) (int64, error)

	GetIdentityByEmail(ctx context.Context, email string, scope softdelete.Scope) (*types.Identity, error)
	GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error)
	CreateIdentity(ctx context.Context, i *types.Identity) (*types.Identity, error)
	UpdateIdentityEmail(ctx context.Context, pkid int64, email string) error

	GetOrganizationByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Organization, error)
	UpdateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)

	GetCaregiverByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Caregiver, error)
	ListCaregivers(ctx context.Context, orgPkID int64, scope softdelete.Scope, page, size int64) ([]*types.Caregiver, error)
	UpdateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error)

	CreatePatient(ctx context.Context, p *types.Patient) (*types.Patient, error)
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
}

type AuthorizerInterface interface {
	Check(ctx context.Context, r authorization.Request) error
}

type NotifierInterface interface {
	EnqueuePatientWelcome(ctx context.Context, userID string) error
}

// ObjectStoreInterface presigns uploads and reads of profile pictures and logos
type ObjectStoreInterface interface {
	PresignUpload(ctx context.Context, kind objectstore.Kind, contentType string) (*objectstore.Upload, error)
	URL(ctx context.Context, ref string) string
}
