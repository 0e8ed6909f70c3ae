// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"context"
	"time"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

type ServiceInterface interface {
	Invite(ctx context.Context, caller *tenant.Context, email, role string) (*InviteResult, error)
	Accept(ctx context.Context, token string, req AcceptRequest) (*AcceptResult, error)
	Get(ctx context.Context, token string) (*types.CaregiverInvite, error)
}

type StorageInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error

	GetIdentityByEmail(ctx context.Context, email string, scope softdelete.Scope) (*types.Identity, error)
	CreateIdentity(ctx context.Context, i *types.Identity) (*types.Identity, error)
	GetOrganizationByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error)
	CreateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error)
	CaregiverExistsForEmail(ctx context.Context, email string) (bool, error)

	GetInviteForUpdate(ctx context.Context, orgPkID int64, email string) (*types.CaregiverInvite, error)
	GetInviteByToken(ctx context.Context, token string, forUpdate bool) (*types.CaregiverInvite, error)
	CreateInvite(ctx context.Context, i *types.CaregiverInvite) (*types.CaregiverInvite, error)
	RotateInvite(ctx context.Context, i *types.CaregiverInvite, expiresAt time.Time, invitedBy *int64) (*types.CaregiverInvite, error)
	SetInviteStatus(ctx context.Context, pkid int64, status types.InviteStatus) error
}

type AuthorizerInterface interface {
	Check(ctx context.Context, r authorization.Request) error
}

type NotifierInterface interface {
	EnqueueInvitation(ctx context.Context, inviteID string) error
}
