// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"context"
	"time"

	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/internal/types"
)

type ServiceInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResult, error)
	Verify(ctx context.Context, uidb64, token string) (*VerifyResult, error)
	ResendActivation(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, uidb64, token string, req PasswordResetConfirmRequest) error
	Login(ctx context.Context, email, password string) (*credentials.Pair, error)
	Refresh(ctx context.Context, refresh string) (*credentials.Pair, error)
	Logout(ctx context.Context, refresh string) error
}

type StorageInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error

	GetIdentityByEmail(ctx context.Context, email string, scope softdelete.Scope) (*types.Identity, error)
	GetIdentityByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Identity, error)
	GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error)
	CreateIdentity(ctx context.Context, i *types.Identity) (*types.Identity, error)
	ActivateIdentity(ctx context.Context, pkid int64) error
	SetPassword(ctx context.Context, pkid int64, hash string) error
	SetLastLogin(ctx context.Context, pkid int64, at time.Time) error

	AcronymExists(ctx context.Context, acronym string) (bool, error)
	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
}

type NotifierInterface interface {
	EnqueueActivation(ctx context.Context, userID string) error
	EnqueuePasswordReset(ctx context.Context, userID string) error
}

type TokenValidatorInterface interface {
	Validate(i *types.Identity, purpose tokens.Purpose, token string) error
}

type IssuerInterface interface {
	Issue(ctx context.Context, identity *types.Identity) (*credentials.Pair, error)
	Verify(ctx context.Context, token string) (*credentials.Claims, error)
	Revoke(ctx context.Context, c *credentials.Claims) error
}
