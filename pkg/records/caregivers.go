// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"context"
	"fmt"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

// ListCaregivers pages through the caregivers of the caller's organization, only organizations
// may look at deleted ones
func (s *Service) ListCaregivers(ctx context.Context, caller *tenant.Context, scope softdelete.Scope, page, size int64) ([]*CaregiverView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.ListCaregivers")
	defer span.End()

	action := authorization.ActionViewCaregivers
	if scope != softdelete.Alive {
		action = authorization.ActionManageCaregivers
	}

	if err := s.authorize(ctx, caller, action, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	caregivers, err := s.storage.ListCaregivers(ctx, caller.TenantPkID(), scope, page, size)
	if err != nil {
		return nil, err
	}

	ret := make([]*CaregiverView, 0, len(caregivers))
	for _, c := range caregivers {
		ret = append(ret, s.caregiverView(ctx, c))
	}

	return ret, nil
}

func (s *Service) GetCaregiver(ctx context.Context, caller *tenant.Context, id string) (*CaregiverView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.GetCaregiver")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionViewCaregivers, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	c, err := s.caregiver(ctx, caller, id, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	return s.caregiverView(ctx, c), nil
}

// UpdateCaregiver edits a caregiver profile, caregivers can only edit their own
func (s *Service) UpdateCaregiver(ctx context.Context, caller *tenant.Context, id string, req CaregiverUpdate) (*CaregiverView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.UpdateCaregiver")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionViewCaregivers, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	c, err := s.caregiver(ctx, caller, id, softdelete.Alive)
	if err != nil {
		return nil, err
	}

	self := caller.Caregiver != nil && caller.Caregiver.PkID == c.PkID
	if err := s.authorize(ctx, caller, authorization.ActionUpdateOwnProfile, c.OrganizationPkID, self); err != nil {
		return nil, err
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	setString(&c.FirstName, req.FirstName)
	setString(&c.LastName, req.LastName)
	setString(&c.MaritalStatus, req.MaritalStatus)
	setString(&c.Gender, req.Gender)
	setString(&c.ProfilePicture, req.ProfilePicture)
	setString(&c.PhoneNumber, req.PhoneNumber)
	setString(&c.Address, req.Address)

	if req.DateOfBirth != nil {
		if c.DateOfBirth, err = parseDate(*req.DateOfBirth); err != nil {
			return nil, err
		}
	}

	updated, err := s.storage.UpdateCaregiver(ctx, c)
	if err != nil {
		return nil, notFound(err, ErrCaregiverNotFound, "caregiver")
	}

	return s.caregiverView(ctx, updated), nil
}

// DeleteCaregiver soft deletes the caregiver together with its account
func (s *Service) DeleteCaregiver(ctx context.Context, caller *tenant.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.DeleteCaregiver")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageCaregivers, caller.TenantPkID(), false); err != nil {
		return err
	}

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.caregiver(ctx, caller, id, softdelete.Alive)
		if err != nil {
			return err
		}

		if _, err := s.storage.SoftDelete(ctx, storage.EntityCaregiver, c.PkID); err != nil {
			return fmt.Errorf("failed to delete caregiver: %w", err)
		}

		if _, err := s.storage.SoftDelete(ctx, storage.EntityIdentity, c.UserPkID); err != nil {
			return fmt.Errorf("failed to delete caregiver account: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "soft_delete", "caregiver:"+id)

	return nil
}

// RestoreCaregiver restores a deleted caregiver and reactivates its account
func (s *Service) RestoreCaregiver(ctx context.Context, caller *tenant.Context, id string) (*CaregiverView, error) {
	ctx, span := s.tracer.Start(ctx, "records.Service.RestoreCaregiver")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageCaregivers, caller.TenantPkID(), false); err != nil {
		return nil, err
	}

	var c *types.Caregiver

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error

		c, err = s.caregiver(ctx, caller, id, softdelete.Dead)
		if err != nil {
			return err
		}

		if _, err := s.storage.Restore(ctx, storage.EntityCaregiver, c.PkID); err != nil {
			return fmt.Errorf("failed to restore caregiver: %w", err)
		}

		if _, err := s.storage.Restore(ctx, storage.EntityIdentity, c.UserPkID); err != nil {
			return fmt.Errorf("failed to restore caregiver account: %w", err)
		}

		c.Restore()

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "restore", "caregiver:"+id)

	return s.caregiverView(ctx, c), nil
}

// HardDeleteCaregiver removes the caregiver profile for good, authored diagnoses are kept
// without an author
func (s *Service) HardDeleteCaregiver(ctx context.Context, caller *tenant.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "records.Service.HardDeleteCaregiver")
	defer span.End()

	if err := s.authorize(ctx, caller, authorization.ActionManageCaregivers, caller.TenantPkID(), false); err != nil {
		return err
	}

	c, err := s.caregiver(ctx, caller, id, softdelete.AllWithDeleted)
	if err != nil {
		return err
	}

	if _, err := s.storage.HardDelete(ctx, storage.EntityCaregiver, c.PkID); err != nil {
		return fmt.Errorf("failed to hard delete caregiver: %w", err)
	}

	s.logger.Security().AdminAction(caller.Identity.ID, "hard_delete", "caregiver:"+id)

	return nil
}

func (s *Service) caregiver(ctx context.Context, caller *tenant.Context, id string, scope softdelete.Scope) (*types.Caregiver, error) {
	c, err := s.storage.GetCaregiverByID(ctx, caller.TenantPkID(), id, scope)
	if err != nil {
		return nil, notFound(err, ErrCaregiverNotFound, "caregiver")
	}

	return c, nil
}
