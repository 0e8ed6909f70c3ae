// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"github.com/canonical/care-service/internal/types"
)

type SignupRequest struct {
	Email                string `json:"email" validate:"required,email,max=254"`
	Name                 string `json:"name" validate:"required,max=255"`
	Acronym              string `json:"acronym" validate:"required,acronym"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
	Address              string `json:"address" validate:"omitempty,max=255"`
	PhoneNumber          string `json:"phone_number" validate:"omitempty,ng_phone"`
}

type SignupResult struct {
	Identity     *types.Identity
	Organization *types.Organization
}

type VerifyResult struct {
	Identity      *types.Identity
	AlreadyActive bool
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh,omitempty"`
}

type PasswordResetConfirmRequest struct {
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

// Organization is the public view of a newly registered organization
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Acronym     string `json:"acronym"`
	Email       string `json:"email"`
	Slug        string `json:"slug"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}
