// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"time"
)

// Update requests use pointers, a nil field is left untouched

type OrganizationUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	Logo        *string `json:"logo" validate:"omitempty,max=512"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,ng_phone"`
}

type CaregiverUpdate struct {
	FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,not_future"`
	MaritalStatus  *string `json:"marital_status" validate:"omitempty,marital_status"`
	Gender         *string `json:"gender" validate:"omitempty,gender"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,max=512"`
	PhoneNumber    *string `json:"phone_number" validate:"omitempty,ng_phone"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
}

type MedicalRecordRequest struct {
	BloodGroup *string  `json:"blood_group" validate:"omitempty,blood_group"`
	Genotype   *string  `json:"genotype" validate:"omitempty,genotype"`
	Weight     *float64 `json:"weight" validate:"omitempty,gte=0,lte=700"`
	Height     *float64 `json:"height" validate:"omitempty,gte=0,lte=300"`
	Allergies  *string  `json:"allergies" validate:"omitempty,max=2000"`
}

type PatientRequest struct {
	Email                string                `json:"email" validate:"required,email,max=254"`
	FirstName            string                `json:"first_name" validate:"required,max=100"`
	LastName             string                `json:"last_name" validate:"required,max=100"`
	DateOfBirth          string                `json:"date_of_birth" validate:"omitempty,not_future"`
	MaritalStatus        string                `json:"marital_status" validate:"omitempty,marital_status"`
	Gender               string                `json:"gender" validate:"omitempty,gender"`
	ProfilePicture       string                `json:"profile_picture" validate:"omitempty,max=512"`
	PhoneNumber          string                `json:"phone_number" validate:"omitempty,ng_phone"`
	EmergencyPhoneNumber string                `json:"emergency_phone_number" validate:"omitempty,ng_phone"`
	Address              string                `json:"address" validate:"omitempty,max=255"`
	MedicalRecord        *MedicalRecordRequest `json:"medical_record"`
}

type PatientUpdate struct {
	FirstName            *string               `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName             *string               `json:"last_name" validate:"omitempty,min=1,max=100"`
	DateOfBirth          *string               `json:"date_of_birth" validate:"omitempty,not_future"`
	MaritalStatus        *string               `json:"marital_status" validate:"omitempty,marital_status"`
	Gender               *string               `json:"gender" validate:"omitempty,gender"`
	ProfilePicture       *string               `json:"profile_picture" validate:"omitempty,max=512"`
	PhoneNumber          *string               `json:"phone_number" validate:"omitempty,ng_phone"`
	EmergencyPhoneNumber *string               `json:"emergency_phone_number" validate:"omitempty,ng_phone"`
	Address              *string               `json:"address" validate:"omitempty,max=255"`
	MedicalRecord        *MedicalRecordRequest `json:"medical_record"`
}

type VitalSignRequest struct {
	BodyTemperature *float64 `json:"body_temperature" validate:"omitempty,gte=25,lte=45"`
	PulseRate       *int32   `json:"pulse_rate" validate:"omitempty,gte=0,lte=300"`
	BloodPressure   *string  `json:"blood_pressure" validate:"omitempty,blood_pressure"`
	BloodOxygen     *float64 `json:"blood_oxygen" validate:"omitempty,gte=0,lte=100"`
	RespirationRate *int32   `json:"respiration_rate" validate:"omitempty,gte=0,lte=100"`
	Weight          *float64 `json:"weight" validate:"omitempty,gte=0,lte=700"`
}

type DiagnosisRequest struct {
	PatientID        string            `json:"patient_id" validate:"required,uuid"`
	CaregiverID      *string           `json:"caregiver_id" validate:"omitempty,uuid"`
	Assessment       string            `json:"assessment" validate:"required,max=5000"`
	Diagnoses        string            `json:"diagnoses" validate:"required,max=5000"`
	Medication       string            `json:"medication" validate:"omitempty,max=5000"`
	HealthAllergies  string            `json:"health_allergies" validate:"omitempty,max=2000"`
	HealthCareCenter string            `json:"health_care_center" validate:"omitempty,max=255"`
	Notes            string            `json:"notes" validate:"omitempty,max=5000"`
	VitalSign        *VitalSignRequest `json:"vital_sign"`
}

type DiagnosisUpdate struct {
	// PatientID is accepted only to reject a change of patient
	PatientID        *string           `json:"patient_id" validate:"omitempty,uuid"`
	Assessment       *string           `json:"assessment" validate:"omitempty,min=1,max=5000"`
	Diagnoses        *string           `json:"diagnoses" validate:"omitempty,min=1,max=5000"`
	Medication       *string           `json:"medication" validate:"omitempty,max=5000"`
	HealthAllergies  *string           `json:"health_allergies" validate:"omitempty,max=2000"`
	HealthCareCenter *string           `json:"health_care_center" validate:"omitempty,max=255"`
	Notes            *string           `json:"notes" validate:"omitempty,max=5000"`
	VitalSign        *VitalSignRequest `json:"vital_sign"`
}

type UploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

type OrganizationView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Acronym     string    `json:"acronym"`
	Email       string    `json:"email"`
	Logo        string    `json:"logo"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"created_at"`
}

type CaregiverView struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	CaregiverType  string    `json:"caregiver_type"`
	StaffNumber    string    `json:"staff_number"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	MaritalStatus  string    `json:"marital_status"`
	Gender         string    `json:"gender"`
	ProfilePicture string    `json:"profile_picture"`
	PhoneNumber    string    `json:"phone_number"`
	Address        string    `json:"address"`
	IsDeleted      bool      `json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
}

type MedicalRecordView struct {
	BloodGroup string   `json:"blood_group"`
	Genotype   string   `json:"genotype"`
	Weight     *float64 `json:"weight"`
	Height     *float64 `json:"height"`
	Allergies  string   `json:"allergies"`
}

type PatientView struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"user_id"`
	Email                string             `json:"email"`
	FirstName            string             `json:"first_name"`
	LastName             string             `json:"last_name"`
	FullName             string             `json:"full_name"`
	MedicalID            string             `json:"medical_id"`
	DateOfBirth          string             `json:"date_of_birth,omitempty"`
	MaritalStatus        string             `json:"marital_status"`
	Gender               string             `json:"gender"`
	ProfilePicture       string             `json:"profile_picture"`
	PhoneNumber          string             `json:"phone_number"`
	EmergencyPhoneNumber string             `json:"emergency_phone_number"`
	Address              string             `json:"address"`
	IsDeleted            bool               `json:"is_deleted"`
	CreatedAt            time.Time          `json:"created_at"`
	MedicalRecord        *MedicalRecordView `json:"medical_record,omitempty"`
}

type VitalSignView struct {
	BodyTemperature *float64 `json:"body_temperature"`
	PulseRate       *int32   `json:"pulse_rate"`
	BloodPressure   string   `json:"blood_pressure"`
	BloodOxygen     *float64 `json:"blood_oxygen"`
	RespirationRate *int32   `json:"respiration_rate"`
	Weight          *float64 `json:"weight"`
}

type DiagnosisView struct {
	ID               string         `json:"id"`
	PatientID        string         `json:"patient_id"`
	CaregiverID      *string        `json:"caregiver_id"`
	Assessment       string         `json:"assessment"`
	Diagnoses        string         `json:"diagnoses"`
	Medication       string         `json:"medication"`
	HealthAllergies  string         `json:"health_allergies"`
	HealthCareCenter string         `json:"health_care_center"`
	Notes            string         `json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	VitalSign        *VitalSignView `json:"vital_sign,omitempty"`
}

// LatestDiagnosisView is a patient next to its most recent diagnosis
type LatestDiagnosisView struct {
	ID             string         `json:"id"`
	PatientName    string         `json:"patient_name"`
	MedicalID      string         `json:"medical_id"`
	ProfilePicture string         `json:"profile_picture"`
	Address        string         `json:"address"`
	Diagnosis      *DiagnosisView `json:"diagnosis"`
}
