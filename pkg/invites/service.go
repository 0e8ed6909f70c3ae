// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/codes"
	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/internal/validation"
	"github.com/canonical/care-service/pkg/tenant"
)

type Service struct {
	cfg Config

	storage   StorageInterface
	authz     AuthorizerInterface
	notifier  NotifierInterface
	validator *validation.Validator

	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Invite creates or refreshes the invite of email to the caller's organization and queues
// the invitation email once committed.
// A queueing failure is reported as ErrEmailSendingFailed next to the committed result.
func (s *Service) Invite(ctx context.Context, caller *tenant.Context, email, role string) (*InviteResult, error) {
	ctx, span := s.tracer.Start(ctx, "invites.Service.Invite")
	defer span.End()

	err := s.authz.Check(ctx, authorization.Request{
		Subject:        caller.Identity.ID,
		Role:           caller.Role(),
		CallerTenant:   caller.TenantPkID(),
		ResourceTenant: caller.TenantPkID(),
		Action:         authorization.ActionInviteCaregiver,
	})
	if err != nil {
		return nil, err
	}

	req := InviteRequest{Email: strings.ToLower(strings.TrimSpace(email)), Role: strings.TrimSpace(role)}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var (
		result = new(InviteResult)
		maxed  bool
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.storage.GetIdentityByEmail(ctx, req.Email, softdelete.AllWithDeleted)
		if err == nil {
			return ErrUserAlreadyExists
		}

		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to look up identity: %w", err)
		}

		now := s.now()
		invitedBy := &caller.Identity.PkID

		existing, err := s.storage.GetInviteForUpdate(ctx, caller.TenantPkID(), req.Email)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			created, err := s.storage.CreateInvite(ctx, &types.CaregiverInvite{
				OrganizationPkID: caller.TenantPkID(),
				Email:            req.Email,
				Role:             req.Role,
				ExpiresAt:        now.Add(s.cfg.Lifetime),
				InvitedByPkID:    invitedBy,
				OrganizationName: caller.Organization.Name,
			})
			if storage.IsDuplicateKeyError(err) {
				return ErrActiveInvitationExists
			}

			if err != nil {
				return err
			}

			result.Invite = created

			return nil
		case err != nil:
			return fmt.Errorf("failed to look up invite: %w", err)
		}

		switch {
		case existing.Status == types.InviteStatusAccepted:
			return ErrInvitationAlreadyAccepted
		case !existing.IsExpired(now):
			return ErrActiveInvitationExists
		case existing.ResendCount >= s.cfg.MaxResends:
			// the lapsed invite is surfaced, so its expiry is committed before failing
			maxed = true
			return s.expire(ctx, existing)
		}

		rotated, err := s.storage.RotateInvite(ctx, existing, now.Add(s.cfg.Lifetime), invitedBy)
		if err != nil {
			return err
		}

		result.Invite = rotated
		result.Resent = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if maxed {
		return nil, ErrMaxResendsExceeded
	}

	s.logger.Infof("invited %s as %s to organization %s, resend %d", result.Invite.Email, result.Invite.Role, caller.Organization.ID, result.Invite.ResendCount)

	if err := s.notifier.EnqueueInvitation(ctx, result.Invite.ID); err != nil {
		s.logger.Errorf("failed to queue invitation email for %s: %v", result.Invite.Email, err)
		return result, ErrEmailSendingFailed.Wrap(err)
	}

	return result, nil
}

// Accept redeems an invite: the caregiver identity and profile are created and the invite is
// accepted in one transaction. An expired invite is persisted as such before failing.
func (s *Service) Accept(ctx context.Context, token string, req AcceptRequest) (*AcceptResult, error) {
	ctx, span := s.tracer.Start(ctx, "invites.Service.Accept")
	defer span.End()

	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrInvalidInvitationToken
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if req.Password != req.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	hash, err := credentials.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		result  *AcceptResult
		expired bool
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		invite, err := s.lockInvite(ctx, token)
		// a token rotated away by a resend is as unusable as a forged one
		if errors.Is(err, ErrInvitationNotFound) {
			return ErrInvalidInvitationToken
		}

		if err != nil {
			return err
		}

		if invite.Status == types.InviteStatusAccepted {
			return ErrInvitationAlreadyAccepted
		}

		// the expiry must be committed, so the transaction ends without error
		if invite.IsExpired(s.now()) {
			expired = true
			return s.expire(ctx, invite)
		}

		result, err = s.createCaregiver(ctx, invite, req, hash)
		if err != nil {
			return err
		}

		return s.storage.SetInviteStatus(ctx, invite.PkID, types.InviteStatusAccepted)
	})

	if err != nil {
		return nil, err
	}

	if expired {
		return nil, ErrInvitationExpired
	}

	s.logger.Infof("caregiver %s accepted invitation to organization %d", result.Caregiver.ID, result.Caregiver.OrganizationPkID)

	return result, nil
}

// Get returns the invite behind token, persisting the expiry of a pending invite past its deadline
func (s *Service) Get(ctx context.Context, token string) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "invites.Service.Get")
	defer span.End()

	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrInvalidInvitationToken
	}

	var invite *types.CaregiverInvite

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error

		invite, err = s.lockInvite(ctx, token)
		if err != nil {
			return err
		}

		if invite.Status == types.InviteStatusPending && invite.IsExpired(s.now()) {
			return s.expire(ctx, invite)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return invite, nil
}

func (s *Service) lockInvite(ctx context.Context, token string) (*types.CaregiverInvite, error) {
	invite, err := s.storage.GetInviteByToken(ctx, token, true)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up invite: %w", err)
	}

	return invite, nil
}

func (s *Service) expire(ctx context.Context, invite *types.CaregiverInvite) error {
	if invite.Status == types.InviteStatusExpired {
		return nil
	}

	if err := s.storage.SetInviteStatus(ctx, invite.PkID, types.InviteStatusExpired); err != nil {
		return err
	}

	invite.Status = types.InviteStatusExpired

	return nil
}

func (s *Service) createCaregiver(ctx context.Context, invite *types.CaregiverInvite, req AcceptRequest, hash string) (*AcceptResult, error) {
	exists, err := s.storage.CaregiverExistsForEmail(ctx, invite.Email)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, ErrCaregiverAlreadyExists
	}

	_, err = s.storage.GetIdentityByEmail(ctx, invite.Email, softdelete.AllWithDeleted)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	org, err := s.storage.GetOrganizationByPkID(ctx, invite.OrganizationPkID, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	identity, err := s.storage.CreateIdentity(ctx, &types.Identity{
		Email:      invite.Email,
		Password:   hash,
		Role:       types.RoleCaregiver,
		IsActive:   true,
		IsVerified: true,
		IsInvited:  true,
	})
	if storage.IsDuplicateKeyError(err) {
		return nil, ErrCaregiverAlreadyExists
	}

	if err != nil {
		return nil, err
	}

	caregiver := &types.Caregiver{
		UserPkID:         identity.PkID,
		OrganizationPkID: org.PkID,
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		CaregiverType:    invite.Role,
		Email:            identity.Email,
		UserID:           identity.ID,
	}

	for attempt := 1; ; attempt++ {
		caregiver.StaffNumber, err = codes.StaffNumber(org.Acronym, invite.Role)
		if err != nil {
			return nil, err
		}

		created, err := s.storage.CreateCaregiver(ctx, caregiver)
		if err == nil {
			return &AcceptResult{Identity: identity, Caregiver: created, Organization: org}, nil
		}

		switch storage.Constraint(err) {
		case storage.ConstraintCaregiverStaffNumber:
			if attempt < codes.MaxAttempts {
				s.logger.Debugf("staff number %s taken, regenerating", caregiver.StaffNumber)
				continue
			}
		case storage.ConstraintCaregiverUser:
			return nil, ErrCaregiverAlreadyExists
		}

		return nil, fmt.Errorf("failed to create caregiver: %w", err)
	}
}

func NewService(
	cfg Config,
	storage StorageInterface,
	authz AuthorizerInterface,
	notifier NotifierInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.cfg = cfg
	s.storage = storage
	s.authz = authz
	s.notifier = notifier
	s.validator = validation.NewValidator()
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
