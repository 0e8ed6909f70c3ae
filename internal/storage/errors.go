// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for storage operations.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// PostgreSQL error codes
const (
	pgErrCodeUniqueViolation     = "23505"
	pgErrCodeForeignKeyViolation = "23503"
)

// Constraint and unique index names, as declared in the migrations
const (
	ConstraintIdentityEmail         = "identities_email_unique"
	ConstraintOrganizationAcronym   = "organizations_acronym_unique"
	ConstraintOrganizationUser      = "organizations_user_pkid_unique"
	ConstraintCaregiverUser         = "caregivers_user_pkid_unique"
	ConstraintCaregiverStaffNumber  = "caregivers_staff_number_unique"
	ConstraintPatientUser           = "patients_user_pkid_unique"
	ConstraintPatientMedicalID      = "patients_medical_id_unique"
	ConstraintInviteEmailOrg        = "caregiver_invites_email_organization_unique"
	ConstraintInviteToken           = "caregiver_invites_token_unique"
	ConstraintDiagnosisPatient      = "patient_diagnoses_patient_pkid_fkey"
	ConstraintCaregiverOrganization = "caregivers_organization_pkid_fkey"
	ConstraintDiagnosisOrganization = "patient_diagnoses_organization_pkid_fkey"
)

// ConstraintError carries the violated constraint next to the storage sentinel
type ConstraintError struct {
	Constraint string
	Context    string

	sentinel error
	cause    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Context, e.sentinel, e.Constraint)
}

func (e *ConstraintError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel}
	}
	return []error{e.sentinel, e.cause}
}

// IsDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrCodeUniqueViolation
	}
	return false
}

// IsForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, ErrForeignKeyViolation) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrCodeForeignKeyViolation
	}
	return false
}

// Constraint returns the name of the constraint violated by err, empty if none
func Constraint(err error) string {
	var cErr *ConstraintError
	if errors.As(err, &cErr) {
		return cErr.Constraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}

	return ""
}

// WrapDuplicateKeyError wraps a duplicate key error with context about which constraint was violated.
func WrapDuplicateKeyError(err error, context string) error {
	if !IsDuplicateKeyError(err) {
		return err
	}
	return newConstraintError(err, ErrDuplicateKey, context)
}

// WrapForeignKeyError wraps a foreign key violation with context.
func WrapForeignKeyError(err error, context string) error {
	if !IsForeignKeyViolation(err) {
		return err
	}
	return newConstraintError(err, ErrForeignKeyViolation, context)
}

// wrapConstraintErrors translates integrity violations and wraps anything else with context
func wrapConstraintErrors(err error, context string) error {
	switch {
	case IsDuplicateKeyError(err):
		return WrapDuplicateKeyError(err, context)
	case IsForeignKeyViolation(err):
		return WrapForeignKeyError(err, context)
	default:
		return fmt.Errorf("%s: %w", context, err)
	}
}

func newConstraintError(err, sentinel error, context string) error {
	var cErr *ConstraintError
	if errors.As(err, &cErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", context, err)
	}

	return &ConstraintError{
		Constraint: pgErr.ConstraintName,
		Context:    context,
		sentinel:   sentinel,
		cause:      err,
	}
}

// duplicateOn reports a conflict on constraint detected without a database error, e.g. ON CONFLICT DO NOTHING
func duplicateOn(constraint, context string) *ConstraintError {
	return &ConstraintError{
		Constraint: constraint,
		Context:    context,
		sentinel:   ErrDuplicateKey,
	}
}
