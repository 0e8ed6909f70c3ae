// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

const (
	SubjectActivation     = "tasks.email.activation"
	SubjectPasswordReset  = "tasks.email.password_reset"
	SubjectInvitation     = "tasks.email.invitation"
	SubjectPatientWelcome = "tasks.email.patient_welcome"

	// SubjectEmails matches every email task
	SubjectEmails = "tasks.email.>"
)

// Task is the payload of an email task, rows are loaded again by the worker
type Task struct {
	UserID   string `json:"user_id,omitempty"`
	InviteID string `json:"invite_id,omitempty"`
}
