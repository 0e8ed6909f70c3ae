// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/internal/validation"
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPassword spends a bcrypt comparison so unknown emails answer as slowly as wrong passwords
func burnPassword(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = credentials.HashPassword("care-service-unknown-account")
	})

	credentials.CheckPassword(dummyHash, password)
}

type Service struct {
	storage   StorageInterface
	notifier  NotifierInterface
	tokens    TokenValidatorInterface
	issuer    IssuerInterface
	validator *validation.Validator

	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Signup registers an organization and its inactive owner account, then queues the activation email.
// A queueing failure is reported as ErrActivationEmailFailed next to the committed result.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.Signup")
	defer span.End()

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Acronym = strings.ToUpper(strings.TrimSpace(req.Acronym))
	req.Name = types.TitleCase(req.Name)

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if req.Password != req.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	if _, err := s.storage.GetIdentityByEmail(ctx, req.Email, softdelete.AllWithDeleted); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	exists, err := s.storage.AcronymExists(ctx, req.Acronym)
	if err != nil {
		return nil, fmt.Errorf("failed to look up acronym: %w", err)
	}

	if exists {
		return nil, ErrAcronymAlreadyExists
	}

	hash, err := credentials.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	result := new(SignupResult)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		identity, err := s.storage.CreateIdentity(ctx, &types.Identity{
			Email:               req.Email,
			Password:            hash,
			Role:                types.RoleOrganization,
			IsOrganizationAdmin: true,
		})
		if err != nil {
			return err
		}

		org, err := s.storage.CreateOrganization(ctx, &types.Organization{
			UserPkID:    identity.PkID,
			Name:        req.Name,
			Acronym:     req.Acronym,
			Address:     strings.TrimSpace(req.Address),
			PhoneNumber: req.PhoneNumber,
			Slug:        types.Slugify(req.Name),
			Email:       identity.Email,
		})
		if err != nil {
			return err
		}

		result.Identity = identity
		result.Organization = org

		return nil
	})

	switch storage.Constraint(err) {
	case "":
	case storage.ConstraintIdentityEmail:
		return nil, ErrEmailAlreadyExists
	case storage.ConstraintOrganizationAcronym:
		return nil, ErrAcronymAlreadyExists
	default:
		return nil, ErrSignupFailed.Wrap(err)
	}

	if err != nil {
		return nil, err
	}

	s.logger.Infof("organization %s registered by %s", result.Organization.ID, result.Identity.ID)

	if err := s.notifier.EnqueueActivation(ctx, result.Identity.ID); err != nil {
		s.logger.Errorf("failed to queue activation email for %s: %v", result.Identity.ID, err)
		return result, ErrActivationEmailFailed.Wrap(err)
	}

	return result, nil
}

// Verify activates the account behind uidb64 when token is a valid activation token for it.
// Activating an active account is not an error.
func (s *Service) Verify(ctx context.Context, uidb64, token string) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.Verify")
	defer span.End()

	pkid, err := tokens.DecodeUID(uidb64)
	if err != nil {
		return nil, ErrUserNotFound
	}

	result := new(VerifyResult)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		identity, err := s.identityByPkID(ctx, pkid)
		if err != nil {
			return err
		}

		result.Identity = identity

		if identity.IsActive {
			result.AlreadyActive = true
			return nil
		}

		switch err := s.tokens.Validate(identity, tokens.PurposeActivation, token); {
		case errors.Is(err, tokens.ErrExpiredToken):
			return ErrActivationLinkExpired
		case err != nil:
			return ErrInvalidActivationToken
		}

		if err := s.storage.ActivateIdentity(ctx, identity.PkID); err != nil {
			return err
		}

		identity.IsActive = true
		identity.IsVerified = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyActive {
		s.logger.Infof("account %s activated", result.Identity.ID)
	}

	return result, nil
}

// ResendActivation queues a new activation email for an account that is not active yet
func (s *Service) ResendActivation(ctx context.Context, email string) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.ResendActivation")
	defer span.End()

	identity, err := s.storage.GetIdentityByEmail(ctx, normalizeEmail(email), softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to look up identity: %w", err)
	}

	if identity.IsActive && identity.IsVerified {
		return ErrAccountAlreadyActive
	}

	if err := s.notifier.EnqueueActivation(ctx, identity.ID); err != nil {
		s.logger.Errorf("failed to queue activation email for %s: %v", identity.ID, err)
		return ErrActivationEmailFailed.Wrap(err)
	}

	return nil
}

// RequestPasswordReset queues a reset email when email belongs to an account.
// It never fails so callers cannot discover which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.RequestPasswordReset")
	defer span.End()

	identity, err := s.storage.GetIdentityByEmail(ctx, normalizeEmail(email), softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debugf("password reset requested for unknown email")
		return nil
	}

	if err != nil {
		s.logger.Errorf("failed to look up identity for password reset: %v", err)
		return nil
	}

	if err := s.notifier.EnqueuePasswordReset(ctx, identity.ID); err != nil {
		s.logger.Errorf("failed to queue password reset email for %s: %v", identity.ID, err)
	}

	return nil
}

// ConfirmPasswordReset sets a new password when token is a valid reset token for uidb64.
// Setting the password moves the state the token is bound to, so a token works once.
func (s *Service) ConfirmPasswordReset(ctx context.Context, uidb64, token string, req PasswordResetConfirmRequest) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.ConfirmPasswordReset")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return err
	}

	pkid, err := tokens.DecodeUID(uidb64)
	if err != nil {
		return ErrInvalidPasswordResetToken
	}

	return s.storage.WithTx(ctx, func(ctx context.Context) error {
		identity, err := s.storage.GetIdentityByPkID(ctx, pkid, softdelete.Alive)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidPasswordResetToken
		}

		if err != nil {
			return fmt.Errorf("failed to look up identity: %w", err)
		}

		if err := s.tokens.Validate(identity, tokens.PurposePasswordReset, token); err != nil {
			return ErrInvalidPasswordResetToken
		}

		if req.Password != req.PasswordConfirmation {
			return ErrPasswordMismatch
		}

		hash, err := credentials.HashPassword(req.Password)
		if err != nil {
			return err
		}

		if err := s.storage.SetPassword(ctx, identity.PkID, hash); err != nil {
			return err
		}

		s.logger.Infof("password reset for account %s", identity.ID)

		return nil
	})
}

// Login checks the password of email and issues a credential pair.
// Unknown emails and wrong passwords fail alike.
func (s *Service) Login(ctx context.Context, email, password string) (*credentials.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.Login")
	defer span.End()

	email = normalizeEmail(email)

	identity, err := s.storage.GetIdentityByEmail(ctx, email, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		burnPassword(password)
		s.logger.Security().AuthnFailure(email, "unknown_email")
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if !credentials.CheckPassword(identity.Password, password) {
		s.logger.Security().AuthnFailure(email, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !identity.IsActive {
		s.logger.Security().AuthnFailure(email, "not_active")
		return nil, ErrAccountNotActive
	}

	if !identity.IsVerified {
		s.logger.Security().AuthnFailure(email, "not_verified")
		return nil, ErrAccountNotVerified
	}

	now := s.now()
	if err := s.storage.SetLastLogin(ctx, identity.PkID, now); err != nil {
		return nil, err
	}

	identity.LastLogin = &now

	return s.issuer.Issue(ctx, identity)
}

// Refresh exchanges a refresh token for a new pair, the presented token is revoked
func (s *Service) Refresh(ctx context.Context, refresh string) (*credentials.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.Refresh")
	defer span.End()

	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}

	identity, err := s.storage.GetIdentityByID(ctx, claims.UserID, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if !identity.IsActive {
		return nil, ErrAccountNotActive
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}

	return s.issuer.Issue(ctx, identity)
}

// Logout revokes refresh until it expires
func (s *Service) Logout(ctx context.Context, refresh string) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.Logout")
	defer span.End()

	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		return err
	}

	return s.revoke(ctx, claims)
}

// revoke claims the refresh token, losing the race to another request means it was already used
func (s *Service) revoke(ctx context.Context, claims *credentials.Claims) error {
	err := s.issuer.Revoke(ctx, claims)
	if errors.Is(err, credentials.ErrRevokedToken) {
		return ErrInvalidRefreshToken
	}

	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

func (s *Service) verifyRefresh(ctx context.Context, refresh string) (*credentials.Claims, error) {
	if refresh == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.issuer.Verify(ctx, refresh)
	switch {
	case errors.Is(err, credentials.ErrInvalidToken), errors.Is(err, credentials.ErrRevokedToken):
		return nil, ErrInvalidRefreshToken
	case err != nil:
		return nil, fmt.Errorf("failed to verify refresh token: %w", err)
	}

	return claims, nil
}

func (s *Service) identityByPkID(ctx context.Context, pkid int64) (*types.Identity, error) {
	identity, err := s.storage.GetIdentityByPkID(ctx, pkid, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	return identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewService(
	storage StorageInterface,
	notifier NotifierInterface,
	tokens TokenValidatorInterface,
	issuer IssuerInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.storage = storage
	s.notifier = notifier
	s.tokens = tokens
	s.issuer = issuer
	s.validator = validation.NewValidator()
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
