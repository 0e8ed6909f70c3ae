// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

// caregiverTypes maps each caregiver type to the abbreviation used in staff numbers
var caregiverTypes = map[string]string{
	"Doctor":                 "DR",
	"Nurse":                  "NUR",
	"Pharmacist":             "PHA",
	"Administrative Staff":   "ADM",
	"Surgeon":                "SUR",
	"Physician":              "PHY",
	"Dentist":                "DEN",
	"Optometrist":            "OPT",
	"Radiologist":            "RAD",
	"Psychiatrist":           "PSY",
	"Physical Therapist":     "PT",
	"Occupational Therapist": "OT",
	"Medical Lab Technician": "MLT",
	"Paramedic":              "PAR",
	"Dietitian":              "DIE",
	"Speech Therapist":       "ST",
	"Medical Assistant":      "MA",
	"Respiratory Therapist":  "RT",
	"Midwife":                "MID",
	"Orthopedist":            "ORT",
	"Cardiologist":           "CAR",
	"Neurologist":            "NEU",
	"Pediatrician":           "PED",
	"Dermatologist":          "DER",
	"Gynecologist":           "GYN",
	"Urologist":              "URO",
	"Oncologist":             "ONC",
	"Endocrinologist":        "END",
	"Anesthesiologist":       "ANE",
}

var (
	MaritalStatuses = []string{"Married", "Single", "Divorced", "Widowed"}
	Genders         = []string{"Male", "Female"}
	BloodGroups     = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	Genotypes       = []string{"AA", "AS", "AC", "SS", "SC"}
)

// IsCaregiverType reports whether t is one of the supported caregiver types
func IsCaregiverType(t string) bool {
	_, ok := caregiverTypes[t]
	return ok
}

// CaregiverTypeAbbreviation returns the staff number abbreviation of t, UNK when unknown
func CaregiverTypeAbbreviation(t string) string {
	if abbr, ok := caregiverTypes[t]; ok {
		return abbr
	}
	return "UNK"
}

// CaregiverTypes lists the supported caregiver types
func CaregiverTypes() []string {
	ret := make([]string, 0, len(caregiverTypes))
	for t := range caregiverTypes {
		ret = append(ret, t)
	}
	return ret
}
