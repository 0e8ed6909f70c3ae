// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

import (
	"context"
	"io"

	"github.com/canonical/care-service/internal/mail"
	"github.com/canonical/care-service/internal/queue"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/internal/types"
)

// DispatcherInterface enqueues email tasks, it must only be called once the triggering
// transaction has committed
type DispatcherInterface interface {
	EnqueueActivation(ctx context.Context, userID string) error
	EnqueuePasswordReset(ctx context.Context, userID string) error
	EnqueueInvitation(ctx context.Context, inviteID string) error
	EnqueuePatientWelcome(ctx context.Context, userID string) error
}

type PublisherInterface interface {
	Publish(ctx context.Context, subject string, v any) error
}

type SubscriberInterface interface {
	Subscribe(ctx context.Context, subject, durable string, fn queue.Handler) (io.Closer, error)
}

type SenderInterface interface {
	Send(ctx context.Context, m mail.Message) error
}

type RendererInterface interface {
	Render(name string, data any) (string, error)
}

type TokenGeneratorInterface interface {
	Make(i *types.Identity, purpose tokens.Purpose) (string, error)
}

type StorageInterface interface {
	GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error)
	GetOrganizationByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error)
	GetOrganizationByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Organization, error)
	GetCaregiverByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Caregiver, error)
	GetPatientByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Patient, error)
	GetInviteByID(ctx context.Context, id string) (*types.CaregiverInvite, error)
}
