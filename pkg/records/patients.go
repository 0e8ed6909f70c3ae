// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/codes"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

// RegisterPatient creates the patient account, profile and optional medical record in one
// transaction, then queues the welcome email carrying the activation and set password links.
// The account is inactive and has no usable password until the patient goes through them.
// A queueing failure is reported as ErrWelcomeEmailFailed next to the committed patient.
func (s *Service) RegisterPatient(ctx context.Context, caller *tenant.Context, req PatientRequest) (*PatientView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.RegisterPatient")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionRegisterPatient, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	var (
		patient *types.Patient
		record  *types.MedicalRecord
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.storage.GetIdentityByEmail(ctx, req.Email, softdelete.AllWithDeleted)
		if err == nil {
			return ErrEmailAlreadyExists
		}

		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to look up identity: %w", err)
		}

		identity, err := s.storage.CreateIdentity(ctx, &types.Identity{
			Email: req.Email,
			Role:  types.RolePatient,
		})
		if storage.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}

		if err != nil {
			return err
		}

		patient, err = s.createPatient(ctx, caller.Organization, &types.Patient{
			UserPkID:             identity.PkID,
			OrganizationPkID:     caller.TenantPkID(),
			FirstName:            req.FirstName,
			LastName:             req.LastName,
			DateOfBirth:          dob,
			MaritalStatus:        req.MaritalStatus,
			Gender:               req.Gender,
			ProfilePicture:       strings.TrimSpace(req.ProfilePicture),
			PhoneNumber:          req.PhoneNumber,
			EmergencyPhoneNumber: req.EmergencyPhoneNumber,
			Address:              strings.TrimSpace(req.Address),
			Email:                identity.Email,
			UserID:               identity.ID,
		})
		if err != nil {
			return err
		}

		if req.MedicalRecord == nil {
			return nil
		}

		record = &types.MedicalRecord{PatientPkID: patient.PkID}
		applyMedicalRecord(record, req.MedicalRecord)

		record, err = s.storage.UpsertMedicalRecord(ctx, record)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("patient %s registered to organization %s by %s", patient.ID, caller.Organization.ID, caller.Identity.ID)

	view := s.patientView(ctx, patient, record)

	if err := s.notifier.EnqueuePatientWelcome(ctx, patient.UserID); err != nil {
		s.logger.Errorf("failed to queue welcome email for patient %s: %v", patient.ID, err)
		return view, ErrWelcomeEmailFailed.Wrap(err)
	}

	return view, nil
}

func (s *Service) createPatient(ctx context.Context, org *types.Organization, p *types.Patient) (*types.Patient, error) {
	for attempt := 1; ; attempt++ {
		id, err := codes.MedicalID(org.Acronym)
		if err != nil {
			return nil, err
		}

		p.MedicalID = id

		created, err := s.storage.CreatePatient(ctx, p)
		if err == nil {
			return created, nil
		}

		switch storage.Constraint(err) {
		case storage.ConstraintPatientMedicalID:
			if attempt < codes.MaxAttempts {
				s.logger.Debugf("medical id %s taken, regenerating", p.MedicalID)
				continue
			}
		case storage.ConstraintPatientUser:
			return nil, ErrEmailAlreadyExists
		}

		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
}

func applyMedicalRecord(r *types.MedicalRecord, req *MedicalRecordRequest) {
	setString(&r.BloodGroup, req.BloodGroup)
	setString(&r.Genotype, req.Genotype)
	setString(&r.Allergies, req.Allergies)

	if req.Weight != nil {
		r.Weight = req.Weight
	}

	if req.Height != nil {
		r.Height = req.Height
	}
}

// ListPatients pages through the patients of the caller's organization, search matches names,
// email and medical id. Only organizations may look at deleted patients.
func (s *Service) ListPatients(ctx context.Context, caller *tenant.Context, scope softdelete.Scope, search string, page, size int64) ([]*PatientView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.ListPatients")
	defer span.End()

	action := authorization.ActionViewPatients
	if scope != softdelete.Alive {
		action = authorization.ActionManagePatients
	}

	if err := s.authorize(ctx, caller, action, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	patients, err := s.storage.ListPatients(ctx, caller.TenantPkID(), scope, strings.TrimSpace(search), page, size)
	if err != nil {
		return nil, err
	}

	ret := make([]*PatientView, 0, len(patients))
	for _, p := range patients {
		ret = append(ret, s.patientView(ctx, p, nil))
	}

	return ret, nil
}

// GetPatient returns a patient with its medical record, patients can only read their own
func (s *Service) GetPatient(ctx context.Context, caller *tenant.Context, id string) (*PatientView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.GetPatient")
	defer span.End()

	p, err := s.patient(ctx, caller, id, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, authorization.ActionViewPatient, p.OrganizationPkID, isPatientSelf(caller, p.PkID)); err != nil {
		return nil, err
	}

	record, err := s.medicalRecord(ctx, p.PkID, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	return s.patientView(ctx, p, record), nil
}

// UpdatePatient edits the patient profile and creates or merges its medical record
func (s *Service) UpdatePatient(ctx context.Context, caller *tenant.Context, id string, req PatientUpdate) (*PatientView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.UpdatePatient")
	defer span.End()

	p, err := s.patient(ctx, caller, id, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, authorization.ActionUpdatePatient, p.OrganizationPkID, isPatientSelf(caller, p.PkID)); err != nil {
		return nil, err
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	setString(&p.FirstName, req.FirstName)
	setString(&p.LastName, req.LastName)
	setString(&p.MaritalStatus, req.MaritalStatus)
	setString(&p.Gender, req.Gender)
	setString(&p.ProfilePicture, req.ProfilePicture)
	setString(&p.PhoneNumber, req.PhoneNumber)
	setString(&p.EmergencyPhoneNumber, req.EmergencyPhoneNumber)
	setString(&p.Address, req.Address)

	if req.DateOfBirth != nil {
		if p.DateOfBirth, err = parseDate(*req.DateOfBirth); err != nil {
			return nil, err
		}
	}

	var (
		updated *types.Patient
		record  *types.MedicalRecord
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error

		updated, err = s.storage.UpdatePatient(ctx, p)
		if err != nil {
			return notFound(err, ErrPatientNotFound, "patient")
		}

		record, err = s.medicalRecord(ctx, p.PkID, softdelete.Alive)
		if err != nil || req.MedicalRecord == nil {
			return err
		}

		if record == nil {
			record = &types.MedicalRecord{PatientPkID: p.PkID}
		}

		applyMedicalRecord(record, req.MedicalRecord)

		record, err = s.storage.UpsertMedicalRecord(ctx, record)

		return err
	})
	if err != nil {
		return nil, err
	}

	return s.patientView(ctx, updated, record), nil
}

// DeletePatient soft deletes the patient with its account and medical record
func (s *Service) DeletePatient(ctx context.Context, caller *tenant.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.DeletePatient")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManagePatients, caller.TenantPkID(), false); err != nil {
		return err
	}

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.patient(ctx, caller, id, softdelete.Alive)
		if err != nil {
			return err
		}

		return s.togglePatient(ctx, p, softdelete.Alive, s.storage.SoftDelete)
	})
	if err != nil {
		return err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "soft_delete", "patient:"+id)

	return nil
}

// RestorePatient restores a deleted patient with its account and medical record
func (s *Service) RestorePatient(ctx context.Context, caller *tenant.Context, id string) (*PatientView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.RestorePatient")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManagePatients, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	var (
		p      *types.Patient
		record *types.MedicalRecord
	)

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error

		p, err = s.patient(ctx, caller, id, softdelete.Dead)
		if err != nil {
			return err
		}

		if err := s.togglePatient(ctx, p, softdelete.Dead, s.storage.Restore); err != nil {
			return err
		}

		p.Restore()

		record, err = s.medicalRecord(ctx, p.PkID, softdelete.Alive)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "restore", "patient:"+id)

	return s.patientView(ctx, p, record), nil
}

type toggleFunc func(ctx context.Context, entity storage.Entity, pkids ...int64) (int64, error)

// togglePatient applies toggle to the patient, its account and its medical record in the given scope
func (s *Service) togglePatient(ctx context.Context, p *types.Patient, recordScope softdelete.Scope, toggle toggleFunc) error {
	if _, err := toggle(ctx, storage.EntityPatient, p.PkID); err != nil {
		return fmt.Errorf("failed to toggle patient: %w", err)
	}

	if _, err := toggle(ctx, storage.EntityIdentity, p.UserPkID); err != nil {
		return fmt.Errorf("failed to toggle patient account: %w", err)
	}

	record, err := s.medicalRecord(ctx, p.PkID, recordScope)
	if err != nil || record == nil {
		return err
	}

	if _, err := toggle(ctx, storage.EntityMedicalRecord, record.PkID); err != nil {
		return fmt.Errorf("failed to toggle medical record: %w", err)
	}

	return nil
}

// HardDeletePatient removes the patient profile for good, refused while diagnoses reference it
func (s *Service) HardDeletePatient(ctx context.Context, caller *tenant.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.HardDeletePatient")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManagePatients, caller.TenantPkID(), false); err != nil {
		return err
	}

	p, err := s.patient(ctx, caller, id, softdelete.AllWithDeleted)
	if err != nil {
		return err
	}

	_, err = s.storage.HardDelete(ctx, storage.EntityPatient, p.PkID)
	if storage.IsForeignKeyViolation(err) && storage.Constraint(err) == storage.ConstraintDiagnosisPatient {
		return ErrPatientHasRecords
	}

	if err != nil {
		return fmt.Errorf("failed to hard delete patient: %w", err)
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "hard_delete", "patient:"+id)

	return nil
}

func (s *Service) patient(ctx context.Context, caller *tenant.Context, id string, scope softdelete.Scope) (*types.Patient, error) {
	p, err := s.storage.GetPatientByID(ctx, caller.TenantPkID(), id, scope)
	if err != nil {
		return nil, notFound(err, ErrPatientNotFound, "patient")
	}

	return p, nil
}

// medicalRecord returns nil without error when the patient has none in scope
func (s *Service) medicalRecord(ctx context.Context, patientPkID int64, scope softdelete.Scope) (*types.MedicalRecord, error) {
	r, err := s.storage.GetMedicalRecord(ctx, patientPkID, scope)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load medical record: %w", err)
	}

	return r, nil
}

func isPatientSelf(caller *tenant.Context, patientPkID int64) bool {
	return caller.Patient != nil && caller.Patient.PkID == patientPkID
}
