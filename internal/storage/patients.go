// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/db"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

var patientColumns = []string{
	"pkid", "id", "user_pkid", "organization_pkid", "first_name", "last_name", "medical_id",
	"date_of_birth", "marital_status", "gender", "profile_picture", "phone_number",
	"emergency_phone_number", "address", "created_at", "updated_at", "is_deleted", "deleted_at",
}

var medicalRecordColumns = []string{
	"pkid", "id", "patient_pkid", "blood_group", "genotype", "weight", "height", "allergies",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

func (s *Storage) patients(ctx context.Context, scope softdelete.Scope) sq.SelectBuilder {
	cols := append(columns("p", patientColumns...), "i.email AS email", "i.id AS user_id")

	return scope.Apply(
		s.db.Statement(ctx).
			Select(cols...).
			From("patients p").
			Join("identities i ON i.pkid = p.user_pkid"),
		"p",
	)
}

// CreatePatient inserts p, a medical id collision is reported as a duplicate on ConstraintPatientMedicalID
func (s *Storage) CreatePatient(ctx context.Context, p *types.Patient) (*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreatePatient")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("patients").
		Columns(
			"id", "user_pkid", "organization_pkid", "first_name", "last_name", "medical_id",
			"date_of_birth", "marital_status", "gender", "profile_picture", "phone_number",
			"emergency_phone_number", "address", "created_at", "updated_at",
		).
		Values(
			uuid.New().String(), p.UserPkID, p.OrganizationPkID, p.FirstName, p.LastName, p.MedicalID,
			p.DateOfBirth, p.MaritalStatus, p.Gender, p.ProfilePicture, p.PhoneNumber,
			p.EmergencyPhoneNumber, p.Address, now, now,
		).
		Suffix("ON CONFLICT (medical_id) DO NOTHING " + returning(patientColumns...))

	created, err := scanOne[types.Patient](ctx, q)
	if errors.Is(err, ErrNotFound) {
		return nil, duplicateOn(ConstraintPatientMedicalID, "failed to insert patient")
	}

	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert patient")
	}

	created.Email = p.Email
	created.UserID = p.UserID

	return created, nil
}

func (s *Storage) GetPatientByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetPatientByUserPkID")
	defer span.End()

	p, err := scanOne[types.Patient](ctx, s.patients(ctx, scope).Where(sq.Eq{"p.user_pkid": userPkID}))
	if err != nil {
		return nil, lookupError(err, "patient")
	}

	return p, nil
}

// GetPatientByID looks up a patient by external id inside the organization
func (s *Storage) GetPatientByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetPatientByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	q := s.patients(ctx, scope).Where(sq.Eq{"p.id": id, "p.organization_pkid": orgPkID})

	p, err := scanOne[types.Patient](ctx, q)
	if err != nil {
		return nil, lookupError(err, "patient")
	}

	return p, nil
}

// ListPatients pages through the organization patients, search matches names, medical id and email
func (s *Storage) ListPatients(ctx context.Context, orgPkID int64, scope softdelete.Scope, search string, page, size int64) ([]*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListPatients")
	defer span.End()

	pageSize := db.PageSize(size)

	q := s.patients(ctx, scope).Where(sq.Eq{"p.organization_pkid": orgPkID})

	if search != "" {
		pattern := likePattern(search)
		q = q.Where(sq.Or{
			sq.ILike{"p.first_name": pattern},
			sq.ILike{"p.last_name": pattern},
			sq.ILike{"p.medical_id": pattern},
			sq.ILike{"i.email": pattern},
		})
	}

	q = q.OrderBy("p.created_at DESC", "p.pkid DESC").
		Limit(pageSize).
		Offset(db.Offset(page, pageSize))

	ret, err := scanAll[types.Patient](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return ret, nil
}

// ListPatientsByPkIDs returns the alive patients among pkids
func (s *Storage) ListPatientsByPkIDs(ctx context.Context, pkids []int64) ([]*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListPatientsByPkIDs")
	defer span.End()

	if len(pkids) == 0 {
		return []*types.Patient{}, nil
	}

	ret, err := scanAll[types.Patient](ctx, s.patients(ctx, softdelete.Alive).Where(sq.Eq{"p.pkid": pkids}))
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return ret, nil
}

func (s *Storage) UpdatePatient(ctx context.Context, p *types.Patient) (*types.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdatePatient")
	defer span.End()

	q := s.db.Statement(ctx).
		Update("patients").
		SetMap(map[string]interface{}{
			"first_name":             p.FirstName,
			"last_name":              p.LastName,
			"date_of_birth":          p.DateOfBirth,
			"marital_status":         p.MaritalStatus,
			"gender":                 p.Gender,
			"profile_picture":        p.ProfilePicture,
			"phone_number":           p.PhoneNumber,
			"emergency_phone_number": p.EmergencyPhoneNumber,
			"address":                p.Address,
			"updated_at":             s.now(),
		}).
		Where(sq.Eq{"pkid": p.PkID}).
		Suffix(returning(patientColumns...))

	updated, err := scanOne[types.Patient](ctx, q)
	if err != nil {
		return nil, lookupError(err, "patient")
	}

	updated.Email = p.Email
	updated.UserID = p.UserID

	return updated, nil
}

// UpsertMedicalRecord creates or replaces the single medical record of a patient
func (s *Storage) UpsertMedicalRecord(ctx context.Context, r *types.MedicalRecord) (*types.MedicalRecord, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpsertMedicalRecord")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("patient_medical_records").
		Columns("id", "patient_pkid", "blood_group", "genotype", "weight", "height", "allergies", "created_at", "updated_at").
		Values(uuid.New().String(), r.PatientPkID, r.BloodGroup, r.Genotype, r.Weight, r.Height, r.Allergies, now, now).
		Suffix(
			"ON CONFLICT (patient_pkid) DO UPDATE SET " +
				"blood_group = EXCLUDED.blood_group, genotype = EXCLUDED.genotype, " +
				"weight = EXCLUDED.weight, height = EXCLUDED.height, " +
				"allergies = EXCLUDED.allergies, updated_at = EXCLUDED.updated_at " +
				returning(medicalRecordColumns...),
		)

	ret, err := scanOne[types.MedicalRecord](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to upsert medical record")
	}

	return ret, nil
}

func (s *Storage) GetMedicalRecord(ctx context.Context, patientPkID int64, scope softdelete.Scope) (*types.MedicalRecord, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetMedicalRecord")
	defer span.End()

	q := scope.Apply(
		s.db.Statement(ctx).
			Select(medicalRecordColumns...).
			From("patient_medical_records").
			Where(sq.Eq{"patient_pkid": patientPkID}),
		"",
	)

	r, err := scanOne[types.MedicalRecord](ctx, q)
	if err != nil {
		return nil, lookupError(err, "medical record")
	}

	return r, nil
}
