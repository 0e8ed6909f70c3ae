// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"time"

	"github.com/canonical/care-service/internal/types"
)

type Config struct {
	Lifetime   time.Duration
	MaxResends int
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,caregiver_type"`
}

type AcceptRequest struct {
	FirstName            string `json:"first_name" validate:"required,max=100"`
	LastName             string `json:"last_name" validate:"required,max=100"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

type InviteResult struct {
	Invite *types.CaregiverInvite
	// Resent is set when an expired invite was rotated instead of created
	Resent bool
}

type AcceptResult struct {
	Identity     *types.Identity
	Caregiver    *types.Caregiver
	Organization *types.Organization
}

// InvitationView is the public view of an invite
type InvitationView struct {
	InvitationID string             `json:"invitation_id"`
	Email        string             `json:"email"`
	Role         string             `json:"role"`
	Status       types.InviteStatus `json:"status"`
	Organization string             `json:"organization,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	ResendCount  *int               `json:"resend_count,omitempty"`
}

// AcceptedCaregiver is the public view of the caregiver created by an acceptance
type AcceptedCaregiver struct {
	CaregiverID  string `json:"caregiver_id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	StaffNumber  string `json:"staff_number"`
}
