// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"github.com/canonical/care-service/internal/apierror"
)

var (
	ErrOrganizationNotFound = apierror.New(apierror.KindNotFound, "organization_not_found", "Organization not found.")
	ErrCaregiverNotFound    = apierror.New(apierror.KindNotFound, "caregiver_not_found", "Caregiver not found.")
	ErrPatientNotFound      = apierror.New(apierror.KindNotFound, "patient_not_found", "Patient not found.")
	ErrDiagnosisNotFound    = apierror.New(apierror.KindNotFound, "diagnosis_not_found", "Diagnosis not found.")

	ErrEmailAlreadyExists = apierror.New(apierror.KindValidation, "email_already_exists", "A user with this email already exists.").WithFields(map[string][]string{"email": {"A user with this email already exists."}})
	ErrPatientImmutable   = apierror.New(apierror.KindValidation, "diagnosis_patient_immutable", "The patient of a diagnosis cannot be changed.").WithFields(map[string][]string{"patient_id": {"The patient of a diagnosis cannot be changed."}})
	ErrCaregiverRequired  = apierror.New(apierror.KindValidation, "caregiver_required", "A caregiver must be assigned to the diagnosis.").WithFields(map[string][]string{"caregiver_id": {"This field is required."}})
	ErrInvalidOrdering    = apierror.New(apierror.KindValidation, "invalid_ordering", "Ordering must be created_at or -created_at.").WithFields(map[string][]string{"ordering": {"Must be one of: created_at, -created_at."}})
	ErrInvalidScope       = apierror.New(apierror.KindValidation, "invalid_scope", "Scope must be alive, deleted or all.").WithFields(map[string][]string{"scope": {"Must be one of: alive, deleted, all."}})
	ErrInvalidUpload      = apierror.New(apierror.KindValidation, "invalid_upload", "Unsupported upload.")

	ErrPatientHasRecords = apierror.New(apierror.KindConflict, "patient_has_records", "Patient has diagnoses and cannot be permanently deleted.")

	ErrWelcomeEmailFailed = apierror.New(apierror.KindDependency, "email_sending_failed", "Patient registered, but email sending failed. Please try again later.")
	ErrUploadsUnavailable = apierror.New(apierror.KindDependency, "uploads_unavailable", "File uploads are not available.")
)
