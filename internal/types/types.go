// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"strings"
	"time"

	"github.com/canonical/care-service/internal/softdelete"
)

type Role string

const (
	RoleOrganization      Role = "Organization"
	RoleCaregiver         Role = "Caregiver"
	RolePatient           Role = "Patient"
	RoleOrganizationAdmin Role = "Organization_Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganization, RoleCaregiver, RolePatient, RoleOrganizationAdmin:
		return true
	}
	return false
}

var (
	_ softdelete.SoftDeletable = (*Identity)(nil)
	_ softdelete.SoftDeletable = (*Organization)(nil)
	_ softdelete.SoftDeletable = (*Caregiver)(nil)
	_ softdelete.SoftDeletable = (*Patient)(nil)
	_ softdelete.SoftDeletable = (*MedicalRecord)(nil)
	_ softdelete.SoftDeletable = (*Diagnosis)(nil)
	_ softdelete.SoftDeletable = (*VitalSign)(nil)
)

// Identity is an account, it owns at most one Organization, Caregiver or Patient profile depending on Role
type Identity struct {
	PkID                int64      `db:"pkid"`
	ID                  string     `db:"id"`
	Email               string     `db:"email"`
	Password            string     `db:"password"`
	Role                Role       `db:"role"`
	IsActive            bool       `db:"is_active"`
	IsVerified          bool       `db:"is_verified"`
	IsInvited           bool       `db:"is_invited"`
	IsStaff             bool       `db:"is_staff"`
	IsOrganizationAdmin bool       `db:"is_organization_admin"`
	LastLogin           *time.Time `db:"last_login"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`

	softdelete.Model
}

// Delete deactivates and unverifies the account along with flagging it
func (i *Identity) Delete(now time.Time) {
	i.MarkDeleted(now)
	i.IsActive = false
	i.IsVerified = false
}

// Restore reactivates the account, mirroring the bulk restore on the identities table
func (i *Identity) Restore() {
	i.Unmark()
	i.IsActive = true
	i.IsVerified = true
}

type Organization struct {
	PkID        int64     `db:"pkid"`
	ID          string    `db:"id"`
	UserPkID    int64     `db:"user_pkid"`
	Name        string    `db:"name"`
	Acronym     string    `db:"acronym"`
	Logo        string    `db:"logo"`
	Address     string    `db:"address"`
	PhoneNumber string    `db:"phone_number"`
	Slug        string    `db:"slug"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	// Email is joined from the owning identity
	Email string `db:"email"`

	softdelete.Model
}

type Caregiver struct {
	PkID             int64      `db:"pkid"`
	ID               string     `db:"id"`
	UserPkID         int64      `db:"user_pkid"`
	OrganizationPkID int64      `db:"organization_pkid"`
	FirstName        string     `db:"first_name"`
	LastName         string     `db:"last_name"`
	CaregiverType    string     `db:"caregiver_type"`
	DateOfBirth      *time.Time `db:"date_of_birth"`
	MaritalStatus    string     `db:"marital_status"`
	Gender           string     `db:"gender"`
	ProfilePicture   string     `db:"profile_picture"`
	PhoneNumber      string     `db:"phone_number"`
	Address          string     `db:"address"`
	StaffNumber      string     `db:"staff_number"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`

	// Email and UserID are joined from the owning identity
	Email  string `db:"email"`
	UserID string `db:"user_id"`

	softdelete.Model
}

type Patient struct {
	PkID                 int64      `db:"pkid"`
	ID                   string     `db:"id"`
	UserPkID             int64      `db:"user_pkid"`
	OrganizationPkID     int64      `db:"organization_pkid"`
	FirstName            string     `db:"first_name"`
	LastName             string     `db:"last_name"`
	MedicalID            string     `db:"medical_id"`
	DateOfBirth          *time.Time `db:"date_of_birth"`
	MaritalStatus        string     `db:"marital_status"`
	Gender               string     `db:"gender"`
	ProfilePicture       string     `db:"profile_picture"`
	PhoneNumber          string     `db:"phone_number"`
	EmergencyPhoneNumber string     `db:"emergency_phone_number"`
	Address              string     `db:"address"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`

	// Email and UserID are joined from the owning identity
	Email  string `db:"email"`
	UserID string `db:"user_id"`

	softdelete.Model
}

type MedicalRecord struct {
	PkID        int64     `db:"pkid"`
	ID          string    `db:"id"`
	PatientPkID int64     `db:"patient_pkid"`
	BloodGroup  string    `db:"blood_group"`
	Genotype    string    `db:"genotype"`
	Weight      *float64  `db:"weight"`
	Height      *float64  `db:"height"`
	Allergies   string    `db:"allergies"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	softdelete.Model
}

type Diagnosis struct {
	PkID             int64     `db:"pkid"`
	ID               string    `db:"id"`
	PatientPkID      int64     `db:"patient_pkid"`
	OrganizationPkID int64     `db:"organization_pkid"`
	CaregiverPkID    *int64    `db:"caregiver_pkid"`
	Assessment       string    `db:"assessment"`
	Diagnoses        string    `db:"diagnoses"`
	Medication       string    `db:"medication"`
	HealthAllergies  string    `db:"health_allergies"`
	HealthCareCenter string    `db:"health_care_center"`
	Notes            string    `db:"notes"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`

	// PatientID and CaregiverID are the joined external identifiers
	PatientID   string  `db:"patient_id"`
	CaregiverID *string `db:"caregiver_id"`

	softdelete.Model
}

type VitalSign struct {
	PkID            int64     `db:"pkid"`
	ID              string    `db:"id"`
	DiagnosisPkID   int64     `db:"diagnosis_pkid"`
	BodyTemperature *float64  `db:"body_temperature"`
	PulseRate       *int32    `db:"pulse_rate"`
	BloodPressure   string    `db:"blood_pressure"`
	BloodOxygen     *float64  `db:"blood_oxygen"`
	RespirationRate *int32    `db:"respiration_rate"`
	Weight          *float64  `db:"weight"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`

	softdelete.Model
}

// PatientDiagnoses groups a patient with its diagnoses, most recent first
type PatientDiagnoses struct {
	Patient   *Patient
	Diagnoses []*Diagnosis
}

// FullName resolves the display name of an identity from its role specific profile.
// profile must be the *Organization, *Caregiver or *Patient owned by the identity, the email
// is returned when it is missing or does not match the role.
func FullName(identity *Identity, profile interface{}) string {
	if identity == nil {
		return ""
	}

	var name string

	switch identity.Role {
	case RoleOrganization, RoleOrganizationAdmin:
		if o, ok := profile.(*Organization); ok && o != nil {
			name = o.Name
		}
	case RoleCaregiver:
		if c, ok := profile.(*Caregiver); ok && c != nil {
			name = c.LastName + " " + c.FirstName
		}
	case RolePatient:
		if p, ok := profile.(*Patient); ok && p != nil {
			name = p.LastName + " " + p.FirstName
		}
	}

	if name = strings.TrimSpace(name); name == "" {
		return identity.Email
	}

	return name
}
