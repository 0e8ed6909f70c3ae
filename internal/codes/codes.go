// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package codes generates the human readable business identifiers of caregivers and patients.
// Uniqueness is enforced by the database, callers regenerate on collision.
package codes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/canonical/care-service/internal/types"
)

// MaxAttempts bounds how many codes a caller generates before giving up on collisions
const MaxAttempts = 3

// StaffNumber renders ACRONYM_ROLEABBR_XXXXXX
func StaffNumber(acronym, caregiverType string) (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(acronym), types.CaregiverTypeAbbreviation(caregiverType), suffix), nil
}

// MedicalID renders ACRONYM_XXXXXXXX
func MedicalID(acronym string) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s", strings.ToUpper(acronym), suffix), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return strings.ToUpper(hex.EncodeToString(b)), nil
}
