// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
)

var (
	ErrTenantNotFound   = apierror.New(apierror.KindNotFound, "organization_not_found", "No organization is associated with this account.")
	ErrIdentityNotFound = apierror.New(apierror.KindUnauthorized, "account_user_not_found", "User not found.")
	ErrIdentityInactive = apierror.New(apierror.KindUnauthorized, "user_inactive", "User is inactive.")
)

type Service struct {
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Load returns the alive, active identity with userID bound to its tenant
func (s *Service) Load(ctx context.Context, userID string) (*Context, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Load")
	defer span.End()

	identity, err := s.storage.GetIdentityByID(ctx, userID, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrIdentityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if !identity.IsActive {
		return nil, ErrIdentityInactive
	}

	c, err := s.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Resolve derives the organization an identity belongs to, it never writes
func (s *Service) Resolve(ctx context.Context, identity *types.Identity) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.Service.Resolve")
	defer span.End()

	c, err := s.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	return c.Organization, nil
}

// resolve tries the owned organization first, then the caregiver profile, then the patient profile
func (s *Service) resolve(ctx context.Context, identity *types.Identity) (*Context, error) {
	c := &Context{Identity: identity}

	org, err := s.storage.GetOrganizationByUserPkID(ctx, identity.PkID, softdelete.Alive)
	if err == nil {
		c.Organization = org
		return c, nil
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}

	caregiver, err := s.storage.GetCaregiverByUserPkID(ctx, identity.PkID, softdelete.Alive)
	if err == nil {
		c.Caregiver = caregiver
		return s.withOrganization(ctx, c, caregiver.OrganizationPkID)
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve caregiver: %w", err)
	}

	patient, err := s.storage.GetPatientByUserPkID(ctx, identity.PkID, softdelete.Alive)
	if err == nil {
		c.Patient = patient
		return s.withOrganization(ctx, c, patient.OrganizationPkID)
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	s.logger.Debugf("no tenant for identity %s", identity.ID)

	return nil, ErrTenantNotFound
}

func (s *Service) withOrganization(ctx context.Context, c *Context, orgPkID int64) (*Context, error) {
	org, err := s.storage.GetOrganizationByPkID(ctx, orgPkID, softdelete.Alive)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTenantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	c.Organization = org

	return c, nil
}

func NewService(storage StorageInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	s := new(Service)

	s.storage = storage

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
