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

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

var identityColumns = []string{
	"pkid", "id", "email", "password", "role",
	"is_active", "is_verified", "is_invited", "is_staff", "is_organization_admin",
	"last_login", "created_at", "updated_at", "is_deleted", "deleted_at",
}

func (s *Storage) identities(ctx context.Context, scope softdelete.Scope) sq.SelectBuilder {
	return scope.Apply(
		s.db.Statement(ctx).Select(identityColumns...).From("identities"),
		"",
	)
}

func (s *Storage) GetIdentityByEmail(ctx context.Context, email string, scope softdelete.Scope) (*types.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetIdentityByEmail")
	defer span.End()

	q := s.identities(ctx, scope).
		Where(sq.Expr("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))))

	i, err := scanOne[types.Identity](ctx, q)
	if err != nil {
		return nil, lookupError(err, "identity")
	}

	return i, nil
}

func (s *Storage) GetIdentityByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetIdentityByPkID")
	defer span.End()

	i, err := scanOne[types.Identity](ctx, s.identities(ctx, scope).Where(sq.Eq{"pkid": pkid}))
	if err != nil {
		return nil, lookupError(err, "identity")
	}

	return i, nil
}

func (s *Storage) GetIdentityByID(ctx context.Context, id string, scope softdelete.Scope) (*types.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetIdentityByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	i, err := scanOne[types.Identity](ctx, s.identities(ctx, scope).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, lookupError(err, "identity")
	}

	return i, nil
}

// CreateIdentity inserts i, the email is stored lowercased
func (s *Storage) CreateIdentity(ctx context.Context, i *types.Identity) (*types.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateIdentity")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("identities").
		Columns(
			"id", "email", "password", "role",
			"is_active", "is_verified", "is_invited", "is_staff", "is_organization_admin",
			"created_at", "updated_at",
		).
		Values(
			uuid.New().String(), strings.ToLower(strings.TrimSpace(i.Email)), i.Password, i.Role,
			i.IsActive, i.IsVerified, i.IsInvited, i.IsStaff, i.IsOrganizationAdmin,
			now, now,
		).
		Suffix(returning(identityColumns...))

	created, err := scanOne[types.Identity](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert identity")
	}

	return created, nil
}

// ActivateIdentity marks the account active and verified
func (s *Storage) ActivateIdentity(ctx context.Context, pkid int64) error {
	ctx, span := s.tracer.Start(ctx, "storage.ActivateIdentity")
	defer span.End()

	return s.updateIdentity(ctx, pkid, map[string]interface{}{
		"is_active":   true,
		"is_verified": true,
	})
}

func (s *Storage) SetPassword(ctx context.Context, pkid int64, hash string) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetPassword")
	defer span.End()

	return s.updateIdentity(ctx, pkid, map[string]interface{}{"password": hash})
}

func (s *Storage) SetLastLogin(ctx context.Context, pkid int64, at time.Time) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetLastLogin")
	defer span.End()

	return s.updateIdentity(ctx, pkid, map[string]interface{}{"last_login": at})
}

func (s *Storage) UpdateIdentityEmail(ctx context.Context, pkid int64, email string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateIdentityEmail")
	defer span.End()

	return s.updateIdentity(ctx, pkid, map[string]interface{}{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Storage) updateIdentity(ctx context.Context, pkid int64, set map[string]interface{}) error {
	set[softdelete.ColumnUpdatedAt] = s.now()

	res, err := s.db.Statement(ctx).
		Update("identities").
		SetMap(set).
		Where(sq.Eq{"pkid": pkid}).
		ExecContext(ctx)
	if err != nil {
		return wrapConstraintErrors(err, "failed to update identity")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}
