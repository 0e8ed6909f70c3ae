// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"net/http"

	"github.com/canonical/care-service/internal/apierror"
)

var (
	ErrActiveInvitationExists    = apierror.NewWithStatus(apierror.KindConflict, http.StatusBadRequest, "active_invitation_exists", "An active invitation already exists for this email.")
	ErrInvitationAlreadyAccepted = apierror.NewWithStatus(apierror.KindConflict, http.StatusBadRequest, "invitation_already_accepted", "Invitation has already been accepted.")
	ErrMaxResendsExceeded        = apierror.NewWithStatus(apierror.KindConflict, http.StatusBadRequest, "max_resends_exceeded", "Maximum resend limit reached for this invitation.")
	ErrUserAlreadyExists         = apierror.NewWithStatus(apierror.KindConflict, http.StatusBadRequest, "user_already_exists", "A user with this email already exists.")
	ErrCaregiverAlreadyExists    = apierror.NewWithStatus(apierror.KindConflict, http.StatusBadRequest, "caregiver_already_exists", "A caregiver account already exists for this email.")
	ErrInvalidInvitationToken    = apierror.New(apierror.KindValidation, "invalid_invitation_token", "Invalid invitation token.")
	ErrInvitationExpired         = apierror.New(apierror.KindValidation, "invitation_expired", "Invitation has expired.")
	ErrInvitationNotFound        = apierror.New(apierror.KindNotFound, "invitation_not_found", "Invitation not found.")
	ErrPasswordMismatch          = apierror.New(apierror.KindValidation, "password_mismatch", "Passwords do not match.").WithFields(map[string][]string{"password_confirmation": {"Passwords do not match."}})
	ErrEmailSendingFailed        = apierror.New(apierror.KindDependency, "email_sending_failed", "Invitation created, but email sending failed. Please try again later.")
)
