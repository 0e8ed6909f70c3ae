// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

// Diagnosis orderings accepted by ListDiagnosesByPatient
const (
	OrderCreatedAtAsc  = "created_at"
	OrderCreatedAtDesc = "-created_at"
)

var diagnosisColumns = []string{
	"pkid", "id", "patient_pkid", "organization_pkid", "caregiver_pkid",
	"assessment", "diagnoses", "medication", "health_allergies", "health_care_center", "notes",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

var vitalSignColumns = []string{
	"pkid", "id", "diagnosis_pkid", "body_temperature", "pulse_rate", "blood_pressure",
	"blood_oxygen", "respiration_rate", "weight", "created_at", "updated_at", "is_deleted", "deleted_at",
}

func (s *Storage) diagnoses(ctx context.Context, scope softdelete.Scope) sq.SelectBuilder {
	cols := append(columns("d", diagnosisColumns...), "p.id AS patient_id", "c.id AS caregiver_id")

	return scope.Apply(
		s.db.Statement(ctx).
			Select(cols...).
			From("patient_diagnoses d").
			Join("patients p ON p.pkid = d.patient_pkid").
			LeftJoin("caregivers c ON c.pkid = d.caregiver_pkid"),
		"d",
	)
}

func (s *Storage) CreateDiagnosis(ctx context.Context, d *types.Diagnosis) (*types.Diagnosis, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateDiagnosis")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("patient_diagnoses").
		Columns(
			"id", "patient_pkid", "organization_pkid", "caregiver_pkid",
			"assessment", "diagnoses", "medication", "health_allergies", "health_care_center", "notes",
			"created_at", "updated_at",
		).
		Values(
			uuid.New().String(), d.PatientPkID, d.OrganizationPkID, d.CaregiverPkID,
			d.Assessment, d.Diagnoses, d.Medication, d.HealthAllergies, d.HealthCareCenter, d.Notes,
			now, now,
		).
		Suffix(returning(diagnosisColumns...))

	created, err := scanOne[types.Diagnosis](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert diagnosis")
	}

	created.PatientID = d.PatientID
	created.CaregiverID = d.CaregiverID

	return created, nil
}

// UpdateDiagnosis persists the clinical fields, patient and organization never change
func (s *Storage) UpdateDiagnosis(ctx context.Context, d *types.Diagnosis) (*types.Diagnosis, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateDiagnosis")
	defer span.End()

	q := s.db.Statement(ctx).
		Update("patient_diagnoses").
		SetMap(map[string]interface{}{
			"caregiver_pkid":     d.CaregiverPkID,
			"assessment":         d.Assessment,
			"diagnoses":          d.Diagnoses,
			"medication":         d.Medication,
			"health_allergies":   d.HealthAllergies,
			"health_care_center": d.HealthCareCenter,
			"notes":              d.Notes,
			"updated_at":         s.now(),
		}).
		Where(sq.Eq{"pkid": d.PkID}).
		Suffix(returning(diagnosisColumns...))

	updated, err := scanOne[types.Diagnosis](ctx, q)
	if err != nil {
		return nil, lookupError(err, "diagnosis")
	}

	updated.PatientID = d.PatientID
	updated.CaregiverID = d.CaregiverID

	return updated, nil
}

// GetDiagnosisByID looks up a diagnosis by external id inside the organization
func (s *Storage) GetDiagnosisByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Diagnosis, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetDiagnosisByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	q := s.diagnoses(ctx, scope).Where(sq.Eq{"d.id": id, "d.organization_pkid": orgPkID})

	d, err := scanOne[types.Diagnosis](ctx, q)
	if err != nil {
		return nil, lookupError(err, "diagnosis")
	}

	return d, nil
}

// ListDiagnosesByPatient returns the alive history of a patient, newest first unless ordering is created_at
func (s *Storage) ListDiagnosesByPatient(ctx context.Context, patientPkID int64, search, ordering string) ([]*types.Diagnosis, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListDiagnosesByPatient")
	defer span.End()

	q := s.diagnoses(ctx, softdelete.Alive).Where(sq.Eq{"d.patient_pkid": patientPkID})

	if search != "" {
		pattern := likePattern(search)
		q = q.Where(sq.Or{
			sq.ILike{"d.assessment": pattern},
			sq.ILike{"d.diagnoses": pattern},
			sq.ILike{"d.medication": pattern},
		})
	}

	if ordering == OrderCreatedAtAsc {
		q = q.OrderBy("d.created_at ASC", "d.pkid ASC")
	} else {
		q = q.OrderBy("d.created_at DESC", "d.pkid DESC")
	}

	ret, err := scanAll[types.Diagnosis](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}

	return ret, nil
}

// ListLatestDiagnoses returns the most recent alive diagnosis of every alive patient of the organization
func (s *Storage) ListLatestDiagnoses(ctx context.Context, orgPkID int64) ([]*types.Diagnosis, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListLatestDiagnoses")
	defer span.End()

	q := s.diagnoses(ctx, softdelete.Alive).
		Options("DISTINCT ON (d.patient_pkid)").
		Where(sq.Eq{"d.organization_pkid": orgPkID, "p.is_deleted": false}).
		OrderBy("d.patient_pkid", "d.created_at DESC", "d.pkid DESC")

	ret, err := scanAll[types.Diagnosis](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest diagnoses: %w", err)
	}

	return ret, nil
}

// UpsertVitalSign creates or replaces the single vital sign of a diagnosis
func (s *Storage) UpsertVitalSign(ctx context.Context, v *types.VitalSign) (*types.VitalSign, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpsertVitalSign")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("vital_signs").
		Columns(
			"id", "diagnosis_pkid", "body_temperature", "pulse_rate", "blood_pressure",
			"blood_oxygen", "respiration_rate", "weight", "created_at", "updated_at",
		).
		Values(
			uuid.New().String(), v.DiagnosisPkID, v.BodyTemperature, v.PulseRate, v.BloodPressure,
			v.BloodOxygen, v.RespirationRate, v.Weight, now, now,
		).
		Suffix(
			"ON CONFLICT (diagnosis_pkid) DO UPDATE SET " +
				"body_temperature = EXCLUDED.body_temperature, pulse_rate = EXCLUDED.pulse_rate, " +
				"blood_pressure = EXCLUDED.blood_pressure, blood_oxygen = EXCLUDED.blood_oxygen, " +
				"respiration_rate = EXCLUDED.respiration_rate, weight = EXCLUDED.weight, " +
				"updated_at = EXCLUDED.updated_at " +
				returning(vitalSignColumns...),
		)

	ret, err := scanOne[types.VitalSign](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to upsert vital sign")
	}

	return ret, nil
}

func (s *Storage) GetVitalSign(ctx context.Context, diagnosisPkID int64, scope softdelete.Scope) (*types.VitalSign, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetVitalSign")
	defer span.End()

	q := scope.Apply(
		s.db.Statement(ctx).
			Select(vitalSignColumns...).
			From("vital_signs").
			Where(sq.Eq{"diagnosis_pkid": diagnosisPkID}),
		"",
	)

	v, err := scanOne[types.VitalSign](ctx, q)
	if err != nil {
		return nil, lookupError(err, "vital sign")
	}

	return v, nil
}

// ListVitalSigns returns the alive vital signs attached to any of the diagnoses
func (s *Storage) ListVitalSigns(ctx context.Context, diagnosisPkIDs []int64) ([]*types.VitalSign, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListVitalSigns")
	defer span.End()

	if len(diagnosisPkIDs) == 0 {
		return []*types.VitalSign{}, nil
	}

	q := softdelete.Alive.Apply(
		s.db.Statement(ctx).
			Select(vitalSignColumns...).
			From("vital_signs").
			Where(sq.Eq{"diagnosis_pkid": diagnosisPkIDs}),
		"",
	)

	ret, err := scanAll[types.VitalSign](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list vital signs: %w", err)
	}

	return ret, nil
}
