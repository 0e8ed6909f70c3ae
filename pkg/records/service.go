// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/internal/validation"
	"github.com/canonical/care-service/pkg/tenant"
)

// Service manages the organization scoped records: the organization profile, caregivers,
// patients with their medical record, diagnoses with their vital sign.
// Every lookup is bound to the caller's organization, records of other tenants are not found.
type Service struct {
	storage   StorageInterface
	authz     AuthorizerInterface
	notifier  NotifierInterface
	objects   ObjectStoreInterface
	validator *validation.Validator

	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Service) authorize(ctx context.Context, caller *tenant.Context, action authorization.Action, resourceTenant int64, self bool) error {
	return s.authz.Check(ctx, authorization.Request{
		Subject:        caller.Identity.ID,
		Role:           caller.Role(),
		CallerTenant:   caller.TenantPkID(),
		ResourceTenant: resourceTenant,
		Action:         action,
		Self:           self,
	})
}

// notFound turns a storage miss into sentinel, anything else is wrapped with what
func notFound(err error, sentinel error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}

	d, err := time.Parse(validation.DateLayout, v)
	if err != nil {
		return nil, validation.FieldError("date_of_birth", "Enter a valid date in the format YYYY-MM-DD, not in the future.")
	}

	return &d, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(validation.DateLayout)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (s *Service) organizationView(ctx context.Context, o *types.Organization) *OrganizationView {
	return &OrganizationView{
		ID:          o.ID,
		Name:        o.Name,
		Acronym:     o.Acronym,
		Email:       o.Email,
		Logo:        s.objects.URL(ctx, o.Logo),
		Address:     o.Address,
		PhoneNumber: o.PhoneNumber,
		Slug:        o.Slug,
		CreatedAt:   o.CreatedAt,
	}
}

func (s *Service) caregiverView(ctx context.Context, c *types.Caregiver) *CaregiverView {
	return &CaregiverView{
		ID:             c.ID,
		UserID:         c.UserID,
		Email:          c.Email,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		FullName:       types.FullName(&types.Identity{Email: c.Email, Role: types.RoleCaregiver}, c),
		CaregiverType:  c.CaregiverType,
		StaffNumber:    c.StaffNumber,
		DateOfBirth:    formatDate(c.DateOfBirth),
		MaritalStatus:  c.MaritalStatus,
		Gender:         c.Gender,
		ProfilePicture: s.objects.URL(ctx, c.ProfilePicture),
		PhoneNumber:    c.PhoneNumber,
		Address:        c.Address,
		IsDeleted:      c.Deleted(),
		CreatedAt:      c.CreatedAt,
	}
}

func (s *Service) patientView(ctx context.Context, p *types.Patient, record *types.MedicalRecord) *PatientView {
	v := &PatientView{
		ID:                   p.ID,
		UserID:               p.UserID,
		Email:                p.Email,
		FirstName:            p.FirstName,
		LastName:             p.LastName,
		FullName:             types.FullName(&types.Identity{Email: p.Email, Role: types.RolePatient}, p),
		MedicalID:            p.MedicalID,
		DateOfBirth:          formatDate(p.DateOfBirth),
		MaritalStatus:        p.MaritalStatus,
		Gender:               p.Gender,
		ProfilePicture:       s.objects.URL(ctx, p.ProfilePicture),
		PhoneNumber:          p.PhoneNumber,
		EmergencyPhoneNumber: p.EmergencyPhoneNumber,
		Address:              p.Address,
		IsDeleted:            p.Deleted(),
		CreatedAt:            p.CreatedAt,
	}

	if record != nil {
		v.MedicalRecord = &MedicalRecordView{
			BloodGroup: record.BloodGroup,
			Genotype:   record.Genotype,
			Weight:     record.Weight,
			Height:     record.Height,
			Allergies:  record.Allergies,
		}
	}

	return v
}

func diagnosisView(d *types.Diagnosis, vs *types.VitalSign) *DiagnosisView {
	v := &DiagnosisView{
		ID:               d.ID,
		PatientID:        d.PatientID,
		CaregiverID:      d.CaregiverID,
		Assessment:       d.Assessment,
		Diagnoses:        d.Diagnoses,
		Medication:       d.Medication,
		HealthAllergies:  d.HealthAllergies,
		HealthCareCenter: d.HealthCareCenter,
		Notes:            d.Notes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}

	if vs != nil {
		v.VitalSign = &VitalSignView{
			BodyTemperature: vs.BodyTemperature,
			PulseRate:       vs.PulseRate,
			BloodPressure:   vs.BloodPressure,
			BloodOxygen:     vs.BloodOxygen,
			RespirationRate: vs.RespirationRate,
			Weight:          vs.Weight,
		}
	}

	return v
}

func NewService(
	storage StorageInterface,
	authz AuthorizerInterface,
	notifier NotifierInterface,
	objects ObjectStoreInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.storage = storage
	s.authz = authz
	s.notifier = notifier
	s.objects = objects
	s.validator = validation.NewValidator()
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
