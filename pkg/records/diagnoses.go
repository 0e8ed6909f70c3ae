// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

// CreateDiagnosis records a diagnosis and its optional vital sign for a patient of the caller's
// organization. Caregivers author their own diagnoses, organizations must name the caregiver.
func (s *Service) CreateDiagnosis(ctx context.Context, caller *tenant.Context, req DiagnosisRequest) (*DiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.CreateDiagnosis")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionWriteDiagnoses, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var (
		diagnosis *types.Diagnosis
		vital     *types.VitalSign
	)

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.patient(ctx, caller, req.PatientID, softdelete.Alive)
		if err != nil {
			return err
		}

		author, err := s.author(ctx, caller, req.CaregiverID)
		if err != nil {
			return err
		}

		diagnosis, err = s.storage.CreateDiagnosis(ctx, &types.Diagnosis{
			PatientPkID:      p.PkID,
			OrganizationPkID: caller.TenantPkID(),
			CaregiverPkID:    &author.PkID,
			Assessment:       strings.TrimSpace(req.Assessment),
			Diagnoses:        strings.TrimSpace(req.Diagnoses),
			Medication:       strings.TrimSpace(req.Medication),
			HealthAllergies:  strings.TrimSpace(req.HealthAllergies),
			HealthCareCenter: strings.TrimSpace(req.HealthCareCenter),
			Notes:            strings.TrimSpace(req.Notes),
			PatientID:        p.ID,
			CaregiverID:      &author.ID,
		})
		if err != nil {
			return err
		}

		if req.VitalSign == nil {
			return nil
		}

		vital = &types.VitalSign{DiagnosisPkID: diagnosis.PkID}
		applyVitalSign(vital, req.VitalSign)

		vital, err = s.storage.UpsertVitalSign(ctx, vital)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("diagnosis %s recorded for patient %s by %s", diagnosis.ID, diagnosis.PatientID, caller.Identity.ID)

	return diagnosisView(diagnosis, vital), nil
}

// author resolves the caregiver credited with a diagnosis
func (s *Service) author(ctx context.Context, caller *tenant.Context, caregiverID *string) (*types.Caregiver, error) {
	if caller.Caregiver != nil {
		return caller.Caregiver, nil
	}

	if caregiverID == nil || *caregiverID == "" {
		return nil, ErrCaregiverRequired
	}

	return s.caregiver(ctx, caller, *caregiverID, softdelete.Alive)
}

func applyVitalSign(v *types.VitalSign, req *VitalSignRequest) {
	setString(&v.BloodPressure, req.BloodPressure)

	if req.BodyTemperature != nil {
		v.BodyTemperature = req.BodyTemperature
	}

	if req.PulseRate != nil {
		v.PulseRate = req.PulseRate
	}

	if req.BloodOxygen != nil {
		v.BloodOxygen = req.BloodOxygen
	}

	if req.RespirationRate != nil {
		v.RespirationRate = req.RespirationRate
	}

	if req.Weight != nil {
		v.Weight = req.Weight
	}
}

// UpdateDiagnosis edits a diagnosis and creates or merges its vital sign, the patient never changes
func (s *Service) UpdateDiagnosis(ctx context.Context, caller *tenant.Context, id string, req DiagnosisUpdate) (*DiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.UpdateDiagnosis")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionWriteDiagnoses, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var (
		diagnosis *types.Diagnosis
		vital     *types.VitalSign
	)

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.diagnosis(ctx, caller, id, softdelete.Alive)
		if err != nil {
			return err
		}

		if req.PatientID != nil && *req.PatientID != d.PatientID {
			return ErrPatientImmutable
		}

		setString(&d.Assessment, req.Assessment)
		setString(&d.Diagnoses, req.Diagnoses)
		setString(&d.Medication, req.Medication)
		setString(&d.HealthAllergies, req.HealthAllergies)
		setString(&d.HealthCareCenter, req.HealthCareCenter)
		setString(&d.Notes, req.Notes)

		diagnosis, err = s.storage.UpdateDiagnosis(ctx, d)
		if err != nil {
			return notFound(err, ErrDiagnosisNotFound, "diagnosis")
		}

		vital, err = s.vitalSign(ctx, d.PkID, softdelete.Alive)
		if err != nil || req.VitalSign == nil {
			return err
		}

		if vital == nil {
			vital = &types.VitalSign{DiagnosisPkID: d.PkID}
		}

		applyVitalSign(vital, req.VitalSign)

		vital, err = s.storage.UpsertVitalSign(ctx, vital)

		return err
	})
	if err != nil {
		return nil, err
	}

	return diagnosisView(diagnosis, vital), nil
}

// GetDiagnosis returns a diagnosis with its vital sign, patients can only read their own
func (s *Service) GetDiagnosis(ctx context.Context, caller *tenant.Context, id string) (*DiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.GetDiagnosis")
	defer span.End()

	d, err := s.diagnosis(ctx, caller, id, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, authorization.ActionViewDiagnoses, d.OrganizationPkID, isPatientSelf(caller, d.PatientPkID)); err != nil {
		return nil, err
	}

	vital, err := s.vitalSign(ctx, d.PkID, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	return diagnosisView(d, vital), nil
}

// ListDiagnoses returns the diagnosis history of a patient, newest first unless ordering is
// created_at. search matches the assessment, diagnoses and medication.
func (s *Service) ListDiagnoses(ctx context.Context, caller *tenant.Context, patientID, search, ordering string) ([]*DiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.ListDiagnoses")
	defer span.End()

	switch ordering {
	case "":
		ordering = storage.OrderCreatedAtDesc
	case storage.OrderCreatedAtAsc, storage.OrderCreatedAtDesc:
	default:
		return nil, ErrInvalidOrdering
	}

	p, err := s.patient(ctx, caller, patientID, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, authorization.ActionViewDiagnoses, p.OrganizationPkID, isPatientSelf(caller, p.PkID)); err != nil {
		return nil, err
	}

	diagnoses, err := s.storage.ListDiagnosesByPatient(ctx, p.PkID, strings.TrimSpace(search), ordering)
	if err != nil {
		return nil, err
	}

	vitals, err := s.vitalSigns(ctx, diagnoses)
	if err != nil {
		return nil, err
	}

	ret := make([]*DiagnosisView, 0, len(diagnoses))
	for _, d := range diagnoses {
		ret = append(ret, diagnosisView(d, vitals[d.PkID]))
	}

	return ret, nil
}

// ListLatestDiagnoses returns every patient of the organization having a diagnosis, next to the
// most recent one
func (s *Service) ListLatestDiagnoses(ctx context.Context, caller *tenant.Context) ([]*LatestDiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.ListLatestDiagnoses")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionViewPatients, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	diagnoses, err := s.storage.ListLatestDiagnoses(ctx, caller.TenantPkID())
	if err != nil {
		return nil, err
	}

	pkids := make([]int64, 0, len(diagnoses))
	for _, d := range diagnoses {
		pkids = append(pkids, d.PatientPkID)
	}

	patients, err := s.storage.ListPatientsByPkIDs(ctx, pkids)
	if err != nil {
		return nil, err
	}

	byPkID := make(map[int64]*types.Patient, len(patients))
	for _, p := range patients {
		byPkID[p.PkID] = p
	}

	vitals, err := s.vitalSigns(ctx, diagnoses)
	if err != nil {
		return nil, err
	}

	ret := make([]*LatestDiagnosisView, 0, len(diagnoses))
	for _, d := range diagnoses {
		p, ok := byPkID[d.PatientPkID]
		if !ok {
			continue
		}

		ret = append(ret, &LatestDiagnosisView{
			ID:             p.ID,
			PatientName:    types.FullName(&types.Identity{Email: p.Email, Role: types.RolePatient}, p),
			MedicalID:      p.MedicalID,
			ProfilePicture: s.objects.URL(ctx, p.ProfilePicture),
			Address:        p.Address,
			Diagnosis:      diagnosisView(d, vitals[d.PkID]),
		})
	}

	return ret, nil
}

// DeleteDiagnosis soft deletes a diagnosis with its vital sign
func (s *Service) DeleteDiagnosis(ctx context.Context, caller *tenant.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.DeleteDiagnosis")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageDiagnoses, caller.TenantPkID(), false); err != nil {
		return err
	}

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.diagnosis(ctx, caller, id, softdelete.Alive)
		if err != nil {
			return err
		}

		return s.toggleDiagnosis(ctx, d, softdelete.Alive, s.storage.SoftDelete)
	})
	if err != nil {
		return err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "soft_delete", "diagnosis:"+id)

	return nil
}

// RestoreDiagnosis restores a deleted diagnosis with its vital sign
func (s *Service) RestoreDiagnosis(ctx context.Context, caller *tenant.Context, id string) (*DiagnosisView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.RestoreDiagnosis")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageDiagnoses, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	var (
		d     *types.Diagnosis
		vital *types.VitalSign
	)

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error

		d, err = s.diagnosis(ctx, caller, id, softdelete.Dead)
		if err != nil {
			return err
		}

		if err := s.toggleDiagnosis(ctx, d, softdelete.Dead, s.storage.Restore); err != nil {
			return err
		}

		d.Restore()

		vital, err = s.vitalSign(ctx, d.PkID, softdelete.Alive)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "restore", "diagnosis:"+id)

	return diagnosisView(d, vital), nil
}

func (s *Service) toggleDiagnosis(ctx context.Context, d *types.Diagnosis, vitalScope softdelete.Scope, toggle toggleFunc) error {
	if _, err := toggle(ctx, storage.EntityDiagnosis, d.PkID); err != nil {
		return fmt.Errorf("failed to toggle diagnosis: %w", err)
	}

	vital, err := s.vitalSign(ctx, d.PkID, vitalScope)
	if err != nil || vital == nil {
		return err
	}

	if _, err := toggle(ctx, storage.EntityVitalSign, vital.PkID); err != nil {
		return fmt.Errorf("failed to toggle vital sign: %w", err)
	}

	return nil
}

func (s *Service) diagnosis(ctx context.Context, caller *tenant.Context, id string, scope softdelete.Scope) (*types.Diagnosis, error) {
	d, err := s.storage.GetDiagnosisByID(ctx, caller.TenantPkID(), id, scope)
	if err != nil {
		return nil, notFound(err, ErrDiagnosisNotFound, "diagnosis")
	}

	return d, nil
}

// vitalSign returns nil without error when the diagnosis has none in scope
func (s *Service) vitalSign(ctx context.Context, diagnosisPkID int64, scope softdelete.Scope) (*types.VitalSign, error) {
	v, err := s.storage.GetVitalSign(ctx, diagnosisPkID, scope)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load vital sign: %w", err)
	}

	return v, nil
}

// vitalSigns indexes the alive vital signs of diagnoses by diagnosis
func (s *Service) vitalSigns(ctx context.Context, diagnoses []*types.Diagnosis) (map[int64]*types.VitalSign, error) {
	pkids := make([]int64, 0, len(diagnoses))
	for _, d := range diagnoses {
		pkids = append(pkids, d.PkID)
	}

	vitals, err := s.storage.ListVitalSigns(ctx, pkids)
	if err != nil {
		return nil, err
	}

	ret := make(map[int64]*types.VitalSign, len(vitals))
	for _, v := range vitals {
		ret[v.DiagnosisPkID] = v
	}

	return ret, nil
}
