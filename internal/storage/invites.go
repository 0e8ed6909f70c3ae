// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/types"
)

var inviteColumns = []string{
	"pkid", "id", "organization_pkid", "email", "role", "token", "status",
	"expires_at", "resend_count", "invited_by_pkid", "created_at", "updated_at",
}

func (s *Storage) invites(ctx context.Context, forUpdate bool) sq.SelectBuilder {
	cols := append(columns("ci", inviteColumns...), "o.name AS organization_name")

	q := s.db.Statement(ctx).
		Select(cols...).
		From("caregiver_invites ci").
		Join("organizations o ON o.pkid = ci.organization_pkid")

	if forUpdate {
		q = q.Suffix("FOR UPDATE OF ci")
	}

	return q
}

// GetInviteForUpdate locks the invite of email for the organization until the transaction ends
func (s *Storage) GetInviteForUpdate(ctx context.Context, orgPkID int64, email string) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInviteForUpdate")
	defer span.End()

	q := s.invites(ctx, true).
		Where(sq.Eq{"ci.organization_pkid": orgPkID}).
		Where(sq.Expr("lower(ci.email) = ?", strings.ToLower(strings.TrimSpace(email))))

	i, err := scanOne[types.CaregiverInvite](ctx, q)
	if err != nil {
		return nil, lookupError(err, "invite")
	}

	return i, nil
}

// GetInviteByToken looks up an invite by its token, locking it when forUpdate is set
func (s *Storage) GetInviteByToken(ctx context.Context, token string, forUpdate bool) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInviteByToken")
	defer span.End()

	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrNotFound
	}

	i, err := scanOne[types.CaregiverInvite](ctx, s.invites(ctx, forUpdate).Where(sq.Eq{"ci.token": token}))
	if err != nil {
		return nil, lookupError(err, "invite")
	}

	return i, nil
}

func (s *Storage) GetInviteByID(ctx context.Context, id string) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInviteByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	i, err := scanOne[types.CaregiverInvite](ctx, s.invites(ctx, false).Where(sq.Eq{"ci.id": id}))
	if err != nil {
		return nil, lookupError(err, "invite")
	}

	return i, nil
}

// CreateInvite inserts a pending invite with a fresh token and no resends
func (s *Storage) CreateInvite(ctx context.Context, i *types.CaregiverInvite) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateInvite")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("caregiver_invites").
		Columns(
			"id", "organization_pkid", "email", "role", "token", "status",
			"expires_at", "resend_count", "invited_by_pkid", "created_at", "updated_at",
		).
		Values(
			uuid.New().String(), i.OrganizationPkID, strings.ToLower(strings.TrimSpace(i.Email)), i.Role, uuid.New().String(), types.InviteStatusPending,
			i.ExpiresAt, 0, i.InvitedByPkID, now, now,
		).
		Suffix(returning(inviteColumns...))

	created, err := scanOne[types.CaregiverInvite](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert invite")
	}

	created.OrganizationName = i.OrganizationName

	return created, nil
}

// RotateInvite reissues an invite: new token and expiry, one more resend, back to pending
func (s *Storage) RotateInvite(ctx context.Context, i *types.CaregiverInvite, expiresAt time.Time, invitedBy *int64) (*types.CaregiverInvite, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RotateInvite")
	defer span.End()

	q := s.db.Statement(ctx).
		Update("caregiver_invites").
		Set("token", uuid.New().String()).
		Set("status", types.InviteStatusPending).
		Set("expires_at", expiresAt).
		Set("resend_count", sq.Expr("resend_count + 1")).
		Set("invited_by_pkid", invitedBy).
		Set("updated_at", s.now()).
		Where(sq.Eq{"pkid": i.PkID}).
		Suffix(returning(inviteColumns...))

	rotated, err := scanOne[types.CaregiverInvite](ctx, q)
	if err != nil {
		return nil, lookupError(err, "invite")
	}

	rotated.OrganizationName = i.OrganizationName

	return rotated, nil
}

func (s *Storage) SetInviteStatus(ctx context.Context, pkid int64, status types.InviteStatus) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetInviteStatus")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("caregiver_invites").
		Set("status", status).
		Set("updated_at", s.now()).
		Where(sq.Eq{"pkid": pkid}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update invite status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
