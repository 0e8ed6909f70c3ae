// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/mock/gomock"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/objectstore"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

//go:generate mockgen -build_flags=--mod=mod -package records -destination ./mock_records.go -source=./interfaces.go

const presignedPrefix = "https://s3.test/"

type serviceMocks struct {
	storage  *MockStorageInterface
	notifier *MockNotifierInterface
	objects  *MockObjectStoreInterface
}

// newMockedService wires mocked dependencies around the real authorization policy
func newMockedService(ctrl *gomock.Controller) (*Service, *serviceMocks) {
	m := &serviceMocks{
		storage:  NewMockStorageInterface(ctrl),
		notifier: NewMockNotifierInterface(ctrl),
		objects:  NewMockObjectStoreInterface(ctrl),
	}

	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("care", logger)

	m.storage.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	m.objects.EXPECT().URL(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ref string) string {
			if ref == "" {
				return ""
			}
			return presignedPrefix + ref
		},
	).AnyTimes()

	s := NewService(m.storage, authorization.NewAuthorizer(tracer, monitor, logger), m.notifier, m.objects, tracer, monitor, logger)

	return s, m
}

func testOrganization() *types.Organization {
	return &types.Organization{PkID: 10, ID: "org-id", UserPkID: 1, Name: "Acme Clinic", Acronym: "ACM", Email: "owner@acme.ng", Slug: "acme-clinic"}
}

func orgCaller() *tenant.Context {
	return &tenant.Context{
		Identity:     &types.Identity{PkID: 1, ID: "owner-id", Email: "owner@acme.ng", Role: types.RoleOrganization},
		Organization: testOrganization(),
	}
}

func adminCaller() *tenant.Context {
	return &tenant.Context{
		Identity:     &types.Identity{PkID: 4, ID: "admin-id", Email: "admin@acme.ng", Role: types.RoleOrganizationAdmin, IsOrganizationAdmin: true},
		Organization: testOrganization(),
	}
}

func caregiverCaller() *tenant.Context {
	return &tenant.Context{
		Identity:     &types.Identity{PkID: 2, ID: "cg-user-id", Email: "nurse@acme.ng", Role: types.RoleCaregiver},
		Organization: testOrganization(),
		Caregiver:    testCaregiver(),
	}
}

func patientCaller() *tenant.Context {
	return &tenant.Context{
		Identity:     &types.Identity{PkID: 3, ID: "pt-user-id", Email: "patient@acme.ng", Role: types.RolePatient},
		Organization: testOrganization(),
		Patient:      testPatient(),
	}
}

func testCaregiver() *types.Caregiver {
	return &types.Caregiver{PkID: 20, ID: "cg-id", UserPkID: 2, OrganizationPkID: 10, FirstName: "Ada", LastName: "Obi", CaregiverType: "Nurse", StaffNumber: "ACM/NUR/1A2B3C", Email: "nurse@acme.ng", UserID: "cg-user-id"}
}

func testPatient() *types.Patient {
	return &types.Patient{PkID: 30, ID: "pt-id", UserPkID: 3, OrganizationPkID: 10, FirstName: "Chi", LastName: "Eze", MedicalID: "ACM_1A2B3C4D", Email: "patient@acme.ng", UserID: "pt-user-id"}
}

func testDiagnosis() *types.Diagnosis {
	cgPkID, cgID := int64(20), "cg-id"
	return &types.Diagnosis{PkID: 40, ID: "dx-id", PatientPkID: 30, OrganizationPkID: 10, CaregiverPkID: &cgPkID, Assessment: "Fever", Diagnoses: "Malaria", PatientID: "pt-id", CaregiverID: &cgID}
}

func duplicate(constraint string) error {
	return storage.WrapDuplicateKeyError(&pgconn.PgError{Code: "23505", ConstraintName: constraint}, "failed to insert")
}

func foreignKey(constraint string) error {
	return storage.WrapForeignKeyError(&pgconn.PgError{Code: "23503", ConstraintName: constraint}, "failed to delete")
}

func ptr[T any](v T) *T {
	return &v
}

func echoPatient(_ context.Context, p *types.Patient) (*types.Patient, error) {
	return p, nil
}

func echoRecord(_ context.Context, r *types.MedicalRecord) (*types.MedicalRecord, error) {
	return r, nil
}

func echoVitalSign(_ context.Context, v *types.VitalSign) (*types.VitalSign, error) {
	return v, nil
}

func TestService_GetOrganization(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _ := newMockedService(ctrl)

	caller := patientCaller()
	caller.Organization.Logo = "logos/acme.png"

	org, err := s.GetOrganization(context.Background(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if org.Logo != presignedPrefix+"logos/acme.png" {
		t.Errorf("expected presigned logo, got %s", org.Logo)
	}

	if org.Acronym != "ACM" || org.Email != "owner@acme.ng" {
		t.Errorf("unexpected organization view %+v", org)
	}
}

func TestService_UpdateOrganization(t *testing.T) {
	testCases := []struct {
		name        string
		caller      *tenant.Context
		req         OrganizationUpdate
		setupMocks  func(*serviceMocks)
		expectedErr error
		check       func(*testing.T, *OrganizationView)
	}{
		{
			name:        "caregiver not allowed",
			caller:      caregiverCaller(),
			req:         OrganizationUpdate{Name: ptr("Other")},
			setupMocks:  func(*serviceMocks) {},
			expectedErr: apierror.ErrForbidden,
		},
		{
			name:        "invalid phone number",
			caller:      orgCaller(),
			req:         OrganizationUpdate{PhoneNumber: ptr("12345")},
			setupMocks:  func(*serviceMocks) {},
			expectedErr: apierror.ErrValidation,
		},
		{
			name:   "email taken by a deleted account",
			caller: orgCaller(),
			req:    OrganizationUpdate{Email: ptr(" Taken@X.com")},
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "taken@x.com", softdelete.AllWithDeleted).Return(&types.Identity{PkID: 9}, nil)
			},
			expectedErr: ErrEmailAlreadyExists,
		},
		{
			name:   "email taken concurrently",
			caller: orgCaller(),
			req:    OrganizationUpdate{Email: ptr("new@x.com")},
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "new@x.com", softdelete.AllWithDeleted).Return(nil, storage.ErrNotFound)
				m.storage.EXPECT().UpdateIdentityEmail(gomock.Any(), int64(1), "new@x.com").Return(duplicate(storage.ConstraintIdentityEmail))
			},
			expectedErr: ErrEmailAlreadyExists,
		},
		{
			name:   "unchanged email is not checked",
			caller: orgCaller(),
			req:    OrganizationUpdate{Email: ptr("OWNER@acme.ng"), Address: ptr(" 1 Marina, Lagos ")},
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().UpdateOrganization(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, o *types.Organization) (*types.Organization, error) {
						return o, nil
					},
				)
			},
			check: func(t *testing.T, v *OrganizationView) {
				if v.Address != "1 Marina, Lagos" {
					t.Errorf("expected trimmed address, got %q", v.Address)
				}
			},
		},
		{
			name:   "name and email updated",
			caller: adminCaller(),
			req:    OrganizationUpdate{Name: ptr("  st.  mary's   hospital "), Email: ptr("new@x.com")},
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "new@x.com", softdelete.AllWithDeleted).Return(nil, storage.ErrNotFound)
				m.storage.EXPECT().UpdateIdentityEmail(gomock.Any(), int64(1), "new@x.com").Return(nil)
				m.storage.EXPECT().UpdateOrganization(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, o *types.Organization) (*types.Organization, error) {
						if o.Acronym != "ACM" {
							t.Errorf("acronym must not change, got %s", o.Acronym)
						}
						return o, nil
					},
				)
			},
			check: func(t *testing.T, v *OrganizationView) {
				if v.Name != "St. Mary's Hospital" {
					t.Errorf("expected title cased name, got %q", v.Name)
				}
				if v.Slug != "st-marys-hospital" {
					t.Errorf("expected slug from name, got %q", v.Slug)
				}
				if v.Email != "new@x.com" {
					t.Errorf("expected new email, got %q", v.Email)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			tc.setupMocks(m)

			org, err := s.UpdateOrganization(context.Background(), tc.caller, tc.req)

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tc.check(t, org)
		})
	}
}

func TestService_DeleteOrganization(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityOrganization, int64(10)).Return(int64(1), nil)

		if err := s.DeleteOrganization(context.Background(), orgCaller()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("admin is not the owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, _ := newMockedService(ctrl)

		if err := s.DeleteOrganization(context.Background(), adminCaller()); !errors.Is(err, apierror.ErrForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestService_RestoreOrganization(t *testing.T) {
	owner := &types.Identity{PkID: 1, ID: "owner-id", Email: "owner@acme.ng", Role: types.RoleOrganization}

	testCases := []struct {
		name        string
		setupMocks  func(*serviceMocks)
		expectedErr error
	}{
		{
			name: "unknown account",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByID(gomock.Any(), "owner-id", softdelete.Alive).Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrOrganizationNotFound,
		},
		{
			name: "organization not deleted",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByID(gomock.Any(), "owner-id", softdelete.Alive).Return(owner, nil)
				m.storage.EXPECT().GetOrganizationByUserPkID(gomock.Any(), int64(1), softdelete.Dead).Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrOrganizationNotFound,
		},
		{
			name: "restored",
			setupMocks: func(m *serviceMocks) {
				deleted := testOrganization()
				deleted.Email = ""
				deleted.MarkDeleted(time.Now())

				m.storage.EXPECT().GetIdentityByID(gomock.Any(), "owner-id", softdelete.Alive).Return(owner, nil)
				m.storage.EXPECT().GetOrganizationByUserPkID(gomock.Any(), int64(1), softdelete.Dead).Return(deleted, nil)
				m.storage.EXPECT().Restore(gomock.Any(), storage.EntityOrganization, int64(10)).Return(int64(1), nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			tc.setupMocks(m)

			org, err := s.RestoreOrganization(context.Background(), "owner-id")

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if org.Email != "owner@acme.ng" {
				t.Errorf("expected owner email on restored organization, got %q", org.Email)
			}
		})
	}
}

func TestService_ListCaregivers(t *testing.T) {
	testCases := []struct {
		name    string
		caller  *tenant.Context
		scope   softdelete.Scope
		allowed bool
	}{
		{name: "caregiver lists alive", caller: caregiverCaller(), scope: softdelete.Alive, allowed: true},
		{name: "caregiver cannot list deleted", caller: caregiverCaller(), scope: softdelete.Dead},
		{name: "organization lists deleted", caller: orgCaller(), scope: softdelete.Dead, allowed: true},
		{name: "patient cannot list", caller: patientCaller(), scope: softdelete.Alive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)

			if tc.allowed {
				c := testCaregiver()
				c.ProfilePicture = "profile-pictures/ada.png"
				m.storage.EXPECT().ListCaregivers(gomock.Any(), int64(10), tc.scope, int64(2), int64(5)).Return([]*types.Caregiver{c}, nil)
			}

			caregivers, err := s.ListCaregivers(context.Background(), tc.caller, tc.scope, 2, 5)

			if !tc.allowed {
				if !errors.Is(err, apierror.ErrForbidden) {
					t.Errorf("expected forbidden, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(caregivers) != 1 || caregivers[0].FullName != "Obi Ada" {
				t.Fatalf("unexpected caregivers %+v", caregivers)
			}

			if caregivers[0].ProfilePicture != presignedPrefix+"profile-pictures/ada.png" {
				t.Errorf("expected presigned picture, got %s", caregivers[0].ProfilePicture)
			}
		})
	}
}

func TestService_UpdateCaregiver(t *testing.T) {
	testCases := []struct {
		name        string
		caller      *tenant.Context
		req         CaregiverUpdate
		updated     bool
		expectedErr error
	}{
		{
			name:    "own profile",
			caller:  caregiverCaller(),
			req:     CaregiverUpdate{PhoneNumber: ptr("08012345678"), DateOfBirth: ptr("1990-05-17")},
			updated: true,
		},
		{
			name:        "organization cannot edit caregiver profiles",
			caller:      orgCaller(),
			req:         CaregiverUpdate{FirstName: ptr("Eve")},
			expectedErr: apierror.ErrForbidden,
		},
		{
			name: "other caregiver",
			caller: func() *tenant.Context {
				c := caregiverCaller()
				c.Caregiver.PkID = 21
				return c
			}(),
			req:         CaregiverUpdate{FirstName: ptr("Eve")},
			expectedErr: apierror.ErrForbidden,
		},
		{
			name:        "birth date in the future",
			caller:      caregiverCaller(),
			req:         CaregiverUpdate{DateOfBirth: ptr("2999-01-01")},
			expectedErr: apierror.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), "cg-id", softdelete.Alive).Return(testCaregiver(), nil)

			if tc.updated {
				m.storage.EXPECT().UpdateCaregiver(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, c *types.Caregiver) (*types.Caregiver, error) {
						return c, nil
					},
				)
			}

			c, err := s.UpdateCaregiver(context.Background(), tc.caller, "cg-id", tc.req)

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if c.PhoneNumber != "08012345678" || c.DateOfBirth != "1990-05-17" {
				t.Errorf("unexpected caregiver %+v", c)
			}

			if c.FirstName != "Ada" {
				t.Errorf("unset fields must be kept, got first name %q", c.FirstName)
			}
		})
	}
}

func TestService_CaregiverLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("delete cascades to the account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		gomock.InOrder(
			m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), "cg-id", softdelete.Alive).Return(testCaregiver(), nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityCaregiver, int64(20)).Return(int64(1), nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityIdentity, int64(2)).Return(int64(1), nil),
		)

		if err := s.DeleteCaregiver(ctx, orgCaller(), "cg-id"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("restore cascades to the account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)

		deleted := testCaregiver()
		deleted.MarkDeleted(time.Now())

		gomock.InOrder(
			m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), "cg-id", softdelete.Dead).Return(deleted, nil),
			m.storage.EXPECT().Restore(gomock.Any(), storage.EntityCaregiver, int64(20)).Return(int64(1), nil),
			m.storage.EXPECT().Restore(gomock.Any(), storage.EntityIdentity, int64(2)).Return(int64(1), nil),
		)

		c, err := s.RestoreCaregiver(ctx, orgCaller(), "cg-id")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if c.IsDeleted {
			t.Errorf("expected restored caregiver")
		}
	})

	t.Run("restore of an alive caregiver", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), "cg-id", softdelete.Dead).Return(nil, storage.ErrNotFound)

		if _, err := s.RestoreCaregiver(ctx, orgCaller(), "cg-id"); !errors.Is(err, ErrCaregiverNotFound) {
			t.Errorf("expected caregiver not found, got %v", err)
		}
	})

	t.Run("hard delete removes the profile only", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), "cg-id", softdelete.AllWithDeleted).Return(testCaregiver(), nil)
		m.storage.EXPECT().HardDelete(gomock.Any(), storage.EntityCaregiver, int64(20)).Return(int64(1), nil)

		if err := s.HardDeleteCaregiver(ctx, orgCaller(), "cg-id"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("caregiver cannot delete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, _ := newMockedService(ctrl)

		if err := s.DeleteCaregiver(ctx, caregiverCaller(), "cg-id"); !errors.Is(err, apierror.ErrForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestService_RegisterPatient(t *testing.T) {
	valid := func() PatientRequest {
		return PatientRequest{Email: " New@Patient.ng", FirstName: "Chi", LastName: "Eze", DateOfBirth: "2001-02-03", Gender: "Female"}
	}

	identity := &types.Identity{PkID: 3, ID: "pt-user-id", Email: "new@patient.ng", Role: types.RolePatient}

	testCases := []struct {
		name        string
		caller      *tenant.Context
		req         func() PatientRequest
		setupMocks  func(*serviceMocks)
		expectedErr error
		partial     bool
		record      bool
	}{
		{
			name:        "patient not allowed",
			caller:      patientCaller(),
			req:         valid,
			setupMocks:  func(*serviceMocks) {},
			expectedErr: apierror.ErrForbidden,
		},
		{
			name:   "invalid blood group",
			caller: orgCaller(),
			req: func() PatientRequest {
				r := valid()
				r.MedicalRecord = &MedicalRecordRequest{BloodGroup: ptr("C+")}
				return r
			},
			setupMocks:  func(*serviceMocks) {},
			expectedErr: apierror.ErrValidation,
		},
		{
			name:   "email exists",
			caller: caregiverCaller(),
			req:    valid,
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "new@patient.ng", softdelete.AllWithDeleted).Return(identity, nil)
			},
			expectedErr: ErrEmailAlreadyExists,
		},
		{
			name:   "medical id collision is retried",
			caller: caregiverCaller(),
			req: func() PatientRequest {
				r := valid()
				r.MedicalRecord = &MedicalRecordRequest{BloodGroup: ptr("O+"), Weight: ptr(61.5)}
				return r
			},
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "new@patient.ng", softdelete.AllWithDeleted).Return(nil, storage.ErrNotFound)
				m.storage.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, i *types.Identity) (*types.Identity, error) {
						if i.Role != types.RolePatient || i.IsActive || i.IsVerified || i.Password != "" {
							t.Errorf("expected an inactive patient account without password, got %+v", i)
						}
						return identity, nil
					},
				)
				gomock.InOrder(
					m.storage.EXPECT().CreatePatient(gomock.Any(), gomock.Any()).Return(nil, duplicate(storage.ConstraintPatientMedicalID)),
					m.storage.EXPECT().CreatePatient(gomock.Any(), gomock.Any()).DoAndReturn(
						func(_ context.Context, p *types.Patient) (*types.Patient, error) {
							if !strings.HasPrefix(p.MedicalID, "ACM_") {
								t.Errorf("expected medical id prefixed by the acronym, got %s", p.MedicalID)
							}
							p.PkID = 30
							p.ID = "pt-id"
							return p, nil
						},
					),
				)
				m.storage.EXPECT().UpsertMedicalRecord(gomock.Any(), gomock.Any()).DoAndReturn(echoRecord)
				m.notifier.EXPECT().EnqueuePatientWelcome(gomock.Any(), "pt-user-id").Return(nil)
			},
			record: true,
		},
		{
			name:   "welcome email not queued",
			caller: orgCaller(),
			req:    valid,
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetIdentityByEmail(gomock.Any(), "new@patient.ng", softdelete.AllWithDeleted).Return(nil, storage.ErrNotFound)
				m.storage.EXPECT().CreateIdentity(gomock.Any(), gomock.Any()).Return(identity, nil)
				m.storage.EXPECT().CreatePatient(gomock.Any(), gomock.Any()).DoAndReturn(echoPatient)
				m.notifier.EXPECT().EnqueuePatientWelcome(gomock.Any(), "pt-user-id").Return(errors.New("nats: timeout"))
			},
			expectedErr: ErrWelcomeEmailFailed,
			partial:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			tc.setupMocks(m)

			p, err := s.RegisterPatient(context.Background(), tc.caller, tc.req())

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected error %v, got %v", tc.expectedErr, err)
				}
				if tc.partial != apierror.IsPartial(err) {
					t.Errorf("expected partial %v for %v", tc.partial, err)
				}
				if tc.partial && p == nil {
					t.Errorf("expected the committed patient next to a partial error")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if p.Email != "new@patient.ng" || p.DateOfBirth != "2001-02-03" {
				t.Errorf("unexpected patient %+v", p)
			}

			if tc.record && (p.MedicalRecord == nil || p.MedicalRecord.BloodGroup != "O+") {
				t.Errorf("expected medical record, got %+v", p.MedicalRecord)
			}
		})
	}
}

func TestService_PatientAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("patient reads own record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.Alive).Return(testPatient(), nil)
		m.storage.EXPECT().GetMedicalRecord(gomock.Any(), int64(30), softdelete.Alive).Return(&types.MedicalRecord{PkID: 50, PatientPkID: 30, Genotype: "AA"}, nil)

		p, err := s.GetPatient(ctx, patientCaller(), "pt-id")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.MedicalRecord == nil || p.MedicalRecord.Genotype != "AA" {
			t.Errorf("expected medical record, got %+v", p.MedicalRecord)
		}
	})

	t.Run("patient cannot read another patient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)

		other := testPatient()
		other.PkID = 31
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "other-id", softdelete.Alive).Return(other, nil)

		if _, err := s.GetPatient(ctx, patientCaller(), "other-id"); !errors.Is(err, apierror.ErrForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("patient of another organization is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "foreign-id", softdelete.Alive).Return(nil, storage.ErrNotFound)

		if _, err := s.GetPatient(ctx, orgCaller(), "foreign-id"); !errors.Is(err, ErrPatientNotFound) {
			t.Errorf("expected patient not found, got %v", err)
		}
	})

	t.Run("update merges the medical record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.Alive).Return(testPatient(), nil)
		m.storage.EXPECT().UpdatePatient(gomock.Any(), gomock.Any()).DoAndReturn(echoPatient)
		m.storage.EXPECT().GetMedicalRecord(gomock.Any(), int64(30), softdelete.Alive).Return(&types.MedicalRecord{PkID: 50, PatientPkID: 30, Genotype: "AA", BloodGroup: "B+"}, nil)
		m.storage.EXPECT().UpsertMedicalRecord(gomock.Any(), gomock.Any()).DoAndReturn(echoRecord)

		p, err := s.UpdatePatient(ctx, patientCaller(), "pt-id", PatientUpdate{
			Address:       ptr("Enugu"),
			MedicalRecord: &MedicalRecordRequest{Genotype: ptr("AS")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.Address != "Enugu" || p.MedicalRecord.Genotype != "AS" || p.MedicalRecord.BloodGroup != "B+" {
			t.Errorf("unexpected patient %+v %+v", p, p.MedicalRecord)
		}
	})

	t.Run("delete toggles account and medical record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		gomock.InOrder(
			m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.Alive).Return(testPatient(), nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityPatient, int64(30)).Return(int64(1), nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityIdentity, int64(3)).Return(int64(1), nil),
			m.storage.EXPECT().GetMedicalRecord(gomock.Any(), int64(30), softdelete.Alive).Return(&types.MedicalRecord{PkID: 50}, nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityMedicalRecord, int64(50)).Return(int64(1), nil),
		)

		if err := s.DeletePatient(ctx, orgCaller(), "pt-id"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("restore without medical record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)

		deleted := testPatient()
		deleted.MarkDeleted(time.Now())

		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.Dead).Return(deleted, nil)
		m.storage.EXPECT().Restore(gomock.Any(), storage.EntityPatient, int64(30)).Return(int64(1), nil)
		m.storage.EXPECT().Restore(gomock.Any(), storage.EntityIdentity, int64(3)).Return(int64(1), nil)
		m.storage.EXPECT().GetMedicalRecord(gomock.Any(), int64(30), softdelete.Dead).Return(nil, storage.ErrNotFound)
		m.storage.EXPECT().GetMedicalRecord(gomock.Any(), int64(30), softdelete.Alive).Return(nil, storage.ErrNotFound)

		p, err := s.RestorePatient(ctx, adminCaller(), "pt-id")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.IsDeleted || p.MedicalRecord != nil {
			t.Errorf("unexpected restored patient %+v", p)
		}
	})

	t.Run("hard delete refused while diagnoses exist", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.AllWithDeleted).Return(testPatient(), nil)
		m.storage.EXPECT().HardDelete(gomock.Any(), storage.EntityPatient, int64(30)).Return(int64(0), foreignKey(storage.ConstraintDiagnosisPatient))

		err := s.HardDeletePatient(ctx, orgCaller(), "pt-id")
		if !errors.Is(err, ErrPatientHasRecords) {
			t.Fatalf("expected patient has records, got %v", err)
		}

		if e, _ := apierror.As(err); e.HTTPStatus() != 409 {
			t.Errorf("expected conflict status, got %d", e.HTTPStatus())
		}
	})
}

func TestService_CreateDiagnosis(t *testing.T) {
	req := func(caregiverID *string) DiagnosisRequest {
		return DiagnosisRequest{
			PatientID:   "6f1c2b1e-0d9a-4f5e-9a51-3f1f4f0b7c11",
			CaregiverID: caregiverID,
			Assessment:  "High temperature",
			Diagnoses:   "Malaria",
			VitalSign:   &VitalSignRequest{BodyTemperature: ptr(38.9), BloodPressure: ptr("120/80")},
		}
	}

	caregiverUUID := "0b8f2d65-8d2b-4a8e-b0f5-0cc0f4dd3a7e"

	testCases := []struct {
		name        string
		caller      *tenant.Context
		req         DiagnosisRequest
		setupMocks  func(*serviceMocks)
		expectedErr error
		author      string
	}{
		{
			name:        "patient not allowed",
			caller:      patientCaller(),
			req:         req(nil),
			setupMocks:  func(*serviceMocks) {},
			expectedErr: apierror.ErrForbidden,
		},
		{
			name:   "organization must name a caregiver",
			caller: orgCaller(),
			req:    req(nil),
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), gomock.Any(), softdelete.Alive).Return(testPatient(), nil)
			},
			expectedErr: ErrCaregiverRequired,
		},
		{
			name:   "caregiver of another organization",
			caller: orgCaller(),
			req:    req(&caregiverUUID),
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), gomock.Any(), softdelete.Alive).Return(testPatient(), nil)
				m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), caregiverUUID, softdelete.Alive).Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrCaregiverNotFound,
		},
		{
			name:   "unknown patient",
			caller: caregiverCaller(),
			req:    req(nil),
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), gomock.Any(), softdelete.Alive).Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrPatientNotFound,
		},
		{
			name:   "caregiver is the author",
			caller: caregiverCaller(),
			req:    req(&caregiverUUID),
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), gomock.Any(), softdelete.Alive).Return(testPatient(), nil)
				m.storage.EXPECT().CreateDiagnosis(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, d *types.Diagnosis) (*types.Diagnosis, error) {
						d.PkID = 40
						d.ID = "dx-id"
						return d, nil
					},
				)
				m.storage.EXPECT().UpsertVitalSign(gomock.Any(), gomock.Any()).DoAndReturn(echoVitalSign)
			},
			author: "cg-id",
		},
		{
			name:   "organization names the author",
			caller: orgCaller(),
			req:    req(&caregiverUUID),
			setupMocks: func(m *serviceMocks) {
				c := testCaregiver()
				c.ID = caregiverUUID

				m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), gomock.Any(), softdelete.Alive).Return(testPatient(), nil)
				m.storage.EXPECT().GetCaregiverByID(gomock.Any(), int64(10), caregiverUUID, softdelete.Alive).Return(c, nil)
				m.storage.EXPECT().CreateDiagnosis(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, d *types.Diagnosis) (*types.Diagnosis, error) {
						return d, nil
					},
				)
				m.storage.EXPECT().UpsertVitalSign(gomock.Any(), gomock.Any()).DoAndReturn(echoVitalSign)
			},
			author: caregiverUUID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			tc.setupMocks(m)

			d, err := s.CreateDiagnosis(context.Background(), tc.caller, tc.req)

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if d.CaregiverID == nil || *d.CaregiverID != tc.author {
				t.Errorf("expected author %s, got %v", tc.author, d.CaregiverID)
			}

			if d.VitalSign == nil || d.VitalSign.BloodPressure != "120/80" {
				t.Errorf("expected vital sign, got %+v", d.VitalSign)
			}
		})
	}
}

func TestService_UpdateDiagnosis(t *testing.T) {
	ctx := context.Background()

	t.Run("patient is immutable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetDiagnosisByID(gomock.Any(), int64(10), "dx-id", softdelete.Alive).Return(testDiagnosis(), nil)

		_, err := s.UpdateDiagnosis(ctx, caregiverCaller(), "dx-id", DiagnosisUpdate{PatientID: ptr("6f1c2b1e-0d9a-4f5e-9a51-3f1f4f0b7c11")})
		if !errors.Is(err, ErrPatientImmutable) {
			t.Errorf("expected immutable patient, got %v", err)
		}
	})

	t.Run("vital sign merged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetDiagnosisByID(gomock.Any(), int64(10), "dx-id", softdelete.Alive).Return(testDiagnosis(), nil)
		m.storage.EXPECT().UpdateDiagnosis(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, d *types.Diagnosis) (*types.Diagnosis, error) {
				return d, nil
			},
		)
		m.storage.EXPECT().GetVitalSign(gomock.Any(), int64(40), softdelete.Alive).Return(&types.VitalSign{PkID: 60, DiagnosisPkID: 40, BloodPressure: "120/80"}, nil)
		m.storage.EXPECT().UpsertVitalSign(gomock.Any(), gomock.Any()).DoAndReturn(echoVitalSign)

		d, err := s.UpdateDiagnosis(ctx, orgCaller(), "dx-id", DiagnosisUpdate{
			Medication: ptr("Artemether"),
			VitalSign:  &VitalSignRequest{PulseRate: ptr(int32(88))},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if d.Medication != "Artemether" || d.Assessment != "Fever" {
			t.Errorf("unexpected diagnosis %+v", d)
		}

		if d.VitalSign.BloodPressure != "120/80" || *d.VitalSign.PulseRate != 88 {
			t.Errorf("unexpected vital sign %+v", d.VitalSign)
		}
	})
}

func TestService_ListDiagnoses(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid ordering", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, _ := newMockedService(ctrl)

		if _, err := s.ListDiagnoses(ctx, orgCaller(), "pt-id", "", "name"); !errors.Is(err, ErrInvalidOrdering) {
			t.Errorf("expected invalid ordering, got %v", err)
		}
	})

	t.Run("patient reads own history", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().GetPatientByID(gomock.Any(), int64(10), "pt-id", softdelete.Alive).Return(testPatient(), nil)
		m.storage.EXPECT().ListDiagnosesByPatient(gomock.Any(), int64(30), "malaria", storage.OrderCreatedAtDesc).Return([]*types.Diagnosis{testDiagnosis()}, nil)
		m.storage.EXPECT().ListVitalSigns(gomock.Any(), []int64{40}).Return([]*types.VitalSign{{PkID: 60, DiagnosisPkID: 40, BloodPressure: "110/70"}}, nil)

		diagnoses, err := s.ListDiagnoses(ctx, patientCaller(), "pt-id", " malaria ", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(diagnoses) != 1 || diagnoses[0].VitalSign == nil || diagnoses[0].VitalSign.BloodPressure != "110/70" {
			t.Errorf("unexpected diagnoses %+v", diagnoses)
		}
	})

	t.Run("latest per patient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		m.storage.EXPECT().ListLatestDiagnoses(gomock.Any(), int64(10)).Return([]*types.Diagnosis{testDiagnosis()}, nil)
		m.storage.EXPECT().ListPatientsByPkIDs(gomock.Any(), []int64{30}).Return([]*types.Patient{testPatient()}, nil)
		m.storage.EXPECT().ListVitalSigns(gomock.Any(), []int64{40}).Return([]*types.VitalSign{}, nil)

		latest, err := s.ListLatestDiagnoses(ctx, caregiverCaller())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(latest) != 1 || latest[0].PatientName != "Eze Chi" || latest[0].Diagnosis.ID != "dx-id" {
			t.Errorf("unexpected latest diagnoses %+v", latest)
		}
	})
}

func TestService_DiagnosisLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("delete toggles the vital sign", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)
		gomock.InOrder(
			m.storage.EXPECT().GetDiagnosisByID(gomock.Any(), int64(10), "dx-id", softdelete.Alive).Return(testDiagnosis(), nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityDiagnosis, int64(40)).Return(int64(1), nil),
			m.storage.EXPECT().GetVitalSign(gomock.Any(), int64(40), softdelete.Alive).Return(&types.VitalSign{PkID: 60}, nil),
			m.storage.EXPECT().SoftDelete(gomock.Any(), storage.EntityVitalSign, int64(60)).Return(int64(1), nil),
		)

		if err := s.DeleteDiagnosis(ctx, orgCaller(), "dx-id"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("caregiver cannot delete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, _ := newMockedService(ctrl)

		if err := s.DeleteDiagnosis(ctx, caregiverCaller(), "dx-id"); !errors.Is(err, apierror.ErrForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("restore brings the vital sign back", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		s, m := newMockedService(ctrl)

		deleted := testDiagnosis()
		deleted.MarkDeleted(time.Now())
		vital := &types.VitalSign{PkID: 60, DiagnosisPkID: 40, BloodPressure: "120/80"}

		gomock.InOrder(
			m.storage.EXPECT().GetDiagnosisByID(gomock.Any(), int64(10), "dx-id", softdelete.Dead).Return(deleted, nil),
			m.storage.EXPECT().Restore(gomock.Any(), storage.EntityDiagnosis, int64(40)).Return(int64(1), nil),
			m.storage.EXPECT().GetVitalSign(gomock.Any(), int64(40), softdelete.Dead).Return(vital, nil),
			m.storage.EXPECT().Restore(gomock.Any(), storage.EntityVitalSign, int64(60)).Return(int64(1), nil),
			m.storage.EXPECT().GetVitalSign(gomock.Any(), int64(40), softdelete.Alive).Return(vital, nil),
		)

		d, err := s.RestoreDiagnosis(ctx, orgCaller(), "dx-id")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if d.VitalSign == nil {
			t.Errorf("expected restored vital sign")
		}
	})
}

func TestService_PresignUpload(t *testing.T) {
	testCases := []struct {
		name        string
		kind        string
		setupMocks  func(*serviceMocks)
		expectedErr error
	}{
		{
			name:        "unknown kind",
			kind:        "documents",
			setupMocks:  func(*serviceMocks) {},
			expectedErr: ErrInvalidUpload,
		},
		{
			name: "storage not configured",
			kind: "logos",
			setupMocks: func(m *serviceMocks) {
				m.objects.EXPECT().PresignUpload(gomock.Any(), objectstore.KindLogo, "image/png").Return(nil, objectstore.ErrNotConfigured)
			},
			expectedErr: ErrUploadsUnavailable,
		},
		{
			name: "unsupported content type",
			kind: "profile-pictures",
			setupMocks: func(m *serviceMocks) {
				m.objects.EXPECT().PresignUpload(gomock.Any(), objectstore.KindProfilePicture, "image/png").Return(nil, objectstore.ErrUnsupportedContentType)
			},
			expectedErr: ErrInvalidUpload,
		},
		{
			name: "presigned",
			kind: "logos",
			setupMocks: func(m *serviceMocks) {
				m.objects.EXPECT().PresignUpload(gomock.Any(), objectstore.KindLogo, "image/png").Return(&objectstore.Upload{URL: "https://s3.test/put", Key: "logos/x.png"}, nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, m := newMockedService(ctrl)
			tc.setupMocks(m)

			upload, err := s.PresignUpload(context.Background(), orgCaller(), tc.kind, "image/png")

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil || upload.Key != "logos/x.png" {
				t.Errorf("unexpected upload %+v, %v", upload, err)
			}
		})
	}
}
