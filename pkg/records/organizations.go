// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

func (s *Service) GetOrganization(ctx context.Context, caller *tenant.Context) (*OrganizationView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.GetOrganization")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionViewOrganization, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	return s.organizationView(ctx, caller.Organization), nil
}

// UpdateOrganization applies the set fields of req. A new email moves the login of the owner and
// must not belong to any account, deleted ones included.
func (s *Service) UpdateOrganization(ctx context.Context, caller *tenant.Context, req OrganizationUpdate) (*OrganizationView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.UpdateOrganization")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageOrganization, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	org := *caller.Organization

	if req.Name != nil {
		org.Name = types.TitleCase(*req.Name)
		org.Slug = types.Slugify(org.Name)
	}

	setString(&org.Logo, req.Logo)
	setString(&org.Address, req.Address)
	setString(&org.PhoneNumber, req.PhoneNumber)

	var updated *types.Organization

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		if req.Email != nil {
			if err := s.changeEmail(ctx, org.UserPkID, org.Email, normalizeEmail(*req.Email)); err != nil {
				return err
			}
			org.Email = normalizeEmail(*req.Email)
		}

		var err error

		updated, err = s.storage.UpdateOrganization(ctx, &org)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrOrganizationNotFound
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("organization %s profile updated", updated.ID)

	return s.organizationView(ctx, updated), nil
}

func (s *Service) changeEmail(ctx context.Context, userPkID int64, current, email string) error {
	if email == current {
		return nil
	}

	_, err := s.storage.GetIdentityByEmail(ctx, email, softdelete.AllWithDeleted)
	if err == nil {
		return ErrEmailAlreadyExists
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up identity: %w", err)
	}

	err = s.storage.UpdateIdentityEmail(ctx, userPkID, email)
	if storage.IsDuplicateKeyError(err) {
		return ErrEmailAlreadyExists
	}

	return err
}

// DeleteOrganization soft deletes the caller's organization profile, only its owner may do so.
// The owner account stays usable so the organization can be restored.
func (s *Service) DeleteOrganization(ctx context.Context, caller *tenant.Context) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.DeleteOrganization")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageOrganization, caller.TenantPkID(), false); err != nil {
		return err
	}

	if caller.Organization.UserPkID != caller.Identity.PkID {
		s.logger.Security().AuthzFailure(caller.Identity.ID, "delete_organization:"+caller.Organization.ID)
		return apierror.ErrForbidden
	}

	if _, err := s.storage.SoftDelete(ctx, storage.EntityOrganization, caller.Organization.PkID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "soft_delete", "organization:"+caller.Organization.ID)

	return nil
}

// RestoreOrganization restores the deleted organization owned by the account userID.
// It runs without a resolved tenant since deleted organizations do not resolve.
func (s *Service) RestoreOrganization(ctx context.Context, userID string) (*OrganizationView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.RestoreOrganization")
	defer span.End()

	var org *types.Organization

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		identity, err := s.storage.GetIdentityByID(ctx, userID, softdelete.Alive)
		if err != nil {
			return notFound(err, ErrOrganizationNotFound, "identity")
		}

		org, err = s.storage.GetOrganizationByUserPkID(ctx, identity.PkID, softdelete.Dead)
		if err != nil {
			return notFound(err, ErrOrganizationNotFound, "organization")
		}

		err = s.authz.Check(ctx, authorization.Request{
			Subject:        identity.ID,
			Role:           identity.Role,
			CallerTenant:   org.PkID,
			ResourceTenant: org.PkID,
			Action:         authorization.ActionManageOrganization,
		})
		if err != nil {
			return err
		}

		if _, err := s.storage.Restore(ctx, storage.EntityOrganization, org.PkID); err != nil {
			return fmt.Errorf("failed to restore organization: %w", err)
		}

		org.Restore()
		org.Email = identity.Email

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Security().AdminAction(userID, "restore", "organization:"+org.ID)

	return s.organizationView(ctx, org), nil
}
