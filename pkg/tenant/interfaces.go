// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

type ServiceInterface interface {
	Load(ctx context.Context, userID string) (*Context, error)
	Resolve(ctx context.Context, identity *types.Identity) (*types.Organization, error)
}

type StorageInterface interface {
	GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error)
	GetOrganizationByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error)
	GetOrganizationByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Organization, error)
	GetCaregiverByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Caregiver, error)
	GetPatientByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Patient, error)
}
