// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"github.com/canonical/care-service/internal/apierror"
)

var (
	ErrEmailAlreadyExists   = apierror.New(apierror.KindValidation, "email_already_exists", "A user with this email already exists.").WithFields(map[string][]string{"email": {"A user with this email already exists."}})
	ErrAcronymAlreadyExists = apierror.New(apierror.KindValidation, "acronym_already_exists", "An organization with this acronym already exists.").WithFields(map[string][]string{"acronym": {"An organization with this acronym already exists."}})
	ErrPasswordMismatch     = apierror.New(apierror.KindValidation, "password_mismatch", "Passwords do not match.").WithFields(map[string][]string{"password_confirmation": {"Passwords do not match."}})
	ErrSignupFailed         = apierror.New(apierror.KindValidation, "organization_registration_failed", "Failed to register organization.")

	ErrActivationEmailFailed = apierror.New(apierror.KindDependency, "organization_verification_failed", "Failed to send organization verification email. Please try again later.")

	ErrActivationLinkExpired  = apierror.New(apierror.KindUnauthorized, "account_activation_link_expired", "Activation link has expired.")
	ErrInvalidActivationToken = apierror.New(apierror.KindUnauthorized, "account_invalid_token", "Invalid activation token.")
	ErrAccountAlreadyActive   = apierror.New(apierror.KindConflict, "account_already_active", "Account is already active.")
	ErrUserNotFound           = apierror.New(apierror.KindNotFound, "account_user_not_found", "User not found.")

	ErrInvalidCredentials = apierror.New(apierror.KindUnauthorized, "account_invalid_login_credentials", "Invalid email or password.")
	ErrAccountNotActive   = apierror.New(apierror.KindUnauthorized, "account_not_active", "Account is not active.")
	ErrAccountNotVerified = apierror.New(apierror.KindUnauthorized, "account_not_verified", "Account is not verified.")

	ErrInvalidRefreshToken       = apierror.New(apierror.KindUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token.")
	ErrInvalidPasswordResetToken = apierror.New(apierror.KindUnauthorized, "invalid_password_reset_token", "Invalid or expired password reset token.")
)
