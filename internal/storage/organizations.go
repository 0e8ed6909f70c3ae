// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

var organizationColumns = []string{
	"pkid", "id", "user_pkid", "name", "acronym", "logo", "address", "phone_number", "slug",
	"created_at", "updated_at", "is_deleted", "deleted_at",
}

func (s *Storage) organizations(ctx context.Context, scope softdelete.Scope) sq.SelectBuilder {
	cols := append(columns("o", organizationColumns...), "i.email AS email")

	return scope.Apply(
		s.db.Statement(ctx).
			Select(cols...).
			From("organizations o").
			Join("identities i ON i.pkid = o.user_pkid"),
		"o",
	)
}

func (s *Storage) GetOrganizationByPkID(ctx context.Context, pkid int64, scope softdelete.Scope) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationByPkID")
	defer span.End()

	o, err := scanOne[types.Organization](ctx, s.organizations(ctx, scope).Where(sq.Eq{"o.pkid": pkid}))
	if err != nil {
		return nil, lookupError(err, "organization")
	}

	return o, nil
}

// GetOrganizationByUserPkID returns the organization owned by the identity
func (s *Storage) GetOrganizationByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationByUserPkID")
	defer span.End()

	o, err := scanOne[types.Organization](ctx, s.organizations(ctx, scope).Where(sq.Eq{"o.user_pkid": userPkID}))
	if err != nil {
		return nil, lookupError(err, "organization")
	}

	return o, nil
}

// AcronymExists checks acronyms case insensitively across every organization, deleted ones included
func (s *Storage) AcronymExists(ctx context.Context, acronym string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.AcronymExists")
	defer span.End()

	var exists bool
	err := s.db.Statement(ctx).
		Select("1").
		Prefix("SELECT EXISTS (").
		From("organizations").
		Where(sq.Expr("upper(acronym) = ?", strings.ToUpper(strings.TrimSpace(acronym)))).
		Suffix(")").
		QueryRowContext(ctx).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check acronym: %w", err)
	}

	return exists, nil
}

func (s *Storage) CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateOrganization")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("organizations").
		Columns("id", "user_pkid", "name", "acronym", "logo", "address", "phone_number", "slug", "created_at", "updated_at").
		Values(uuid.New().String(), o.UserPkID, o.Name, strings.ToUpper(o.Acronym), o.Logo, o.Address, o.PhoneNumber, o.Slug, now, now).
		Suffix(returning(organizationColumns...))

	created, err := scanOne[types.Organization](ctx, q)
	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert organization")
	}

	created.Email = o.Email

	return created, nil
}

// UpdateOrganization persists the mutable profile fields, the acronym is immutable
func (s *Storage) UpdateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateOrganization")
	defer span.End()

	q := s.db.Statement(ctx).
		Update("organizations").
		SetMap(map[string]interface{}{
			"name":         o.Name,
			"logo":         o.Logo,
			"address":      o.Address,
			"phone_number": o.PhoneNumber,
			"slug":         o.Slug,
			"updated_at":   s.now(),
		}).
		Where(sq.Eq{"pkid": o.PkID}).
		Suffix(returning(organizationColumns...))

	updated, err := scanOne[types.Organization](ctx, q)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, wrapConstraintErrors(err, "failed to update organization")
	}

	updated.Email = o.Email

	return updated, nil
}
