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

	"github.com/canonical/care-service/internal/db"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/types"
)

var caregiverColumns = []string{
	"pkid", "id", "user_pkid", "organization_pkid", "first_name", "last_name", "caregiver_type",
	"date_of_birth", "marital_status", "gender", "profile_picture", "phone_number", "address",
	"staff_number", "created_at", "updated_at", "is_deleted", "deleted_at",
}

func (s *Storage) caregivers(ctx context.Context, scope softdelete.Scope) sq.SelectBuilder {
	cols := append(columns("c", caregiverColumns...), "i.email AS email", "i.id AS user_id")

	return scope.Apply(
		s.db.Statement(ctx).
			Select(cols...).
			From("caregivers c").
			Join("identities i ON i.pkid = c.user_pkid"),
		"c",
	)
}

// CreateCaregiver inserts c, a staff number collision is reported as a duplicate on
// ConstraintCaregiverStaffNumber without aborting the surrounding transaction
func (s *Storage) CreateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateCaregiver")
	defer span.End()

	now := s.now()

	q := s.db.Statement(ctx).
		Insert("caregivers").
		Columns(
			"id", "user_pkid", "organization_pkid", "first_name", "last_name", "caregiver_type",
			"date_of_birth", "marital_status", "gender", "profile_picture", "phone_number", "address",
			"staff_number", "created_at", "updated_at",
		).
		Values(
			uuid.New().String(), c.UserPkID, c.OrganizationPkID, c.FirstName, c.LastName, c.CaregiverType,
			c.DateOfBirth, c.MaritalStatus, c.Gender, c.ProfilePicture, c.PhoneNumber, c.Address,
			c.StaffNumber, now, now,
		).
		Suffix("ON CONFLICT (staff_number) DO NOTHING " + returning(caregiverColumns...))

	created, err := scanOne[types.Caregiver](ctx, q)
	if errors.Is(err, ErrNotFound) {
		return nil, duplicateOn(ConstraintCaregiverStaffNumber, "failed to insert caregiver")
	}

	if err != nil {
		return nil, wrapConstraintErrors(err, "failed to insert caregiver")
	}

	created.Email = c.Email
	created.UserID = c.UserID

	return created, nil
}

// CaregiverExistsForEmail checks whether any caregiver profile, deleted ones included, belongs to email
func (s *Storage) CaregiverExistsForEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CaregiverExistsForEmail")
	defer span.End()

	var exists bool
	err := s.db.Statement(ctx).
		Select("1").
		Prefix("SELECT EXISTS (").
		From("caregivers c").
		Join("identities i ON i.pkid = c.user_pkid").
		Where(sq.Expr("lower(i.email) = ?", strings.ToLower(strings.TrimSpace(email)))).
		Suffix(")").
		QueryRowContext(ctx).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check caregiver: %w", err)
	}

	return exists, nil
}

func (s *Storage) GetCaregiverByUserPkID(ctx context.Context, userPkID int64, scope softdelete.Scope) (*types.Caregiver, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetCaregiverByUserPkID")
	defer span.End()

	c, err := scanOne[types.Caregiver](ctx, s.caregivers(ctx, scope).Where(sq.Eq{"c.user_pkid": userPkID}))
	if err != nil {
		return nil, lookupError(err, "caregiver")
	}

	return c, nil
}

// GetCaregiverByID looks up a caregiver by external id inside the organization
func (s *Storage) GetCaregiverByID(ctx context.Context, orgPkID int64, id string, scope softdelete.Scope) (*types.Caregiver, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetCaregiverByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	q := s.caregivers(ctx, scope).Where(sq.Eq{"c.id": id, "c.organization_pkid": orgPkID})

	c, err := scanOne[types.Caregiver](ctx, q)
	if err != nil {
		return nil, lookupError(err, "caregiver")
	}

	return c, nil
}

func (s *Storage) ListCaregivers(ctx context.Context, orgPkID int64, scope softdelete.Scope, page, size int64) ([]*types.Caregiver, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListCaregivers")
	defer span.End()

	pageSize := db.PageSize(size)

	q := s.caregivers(ctx, scope).
		Where(sq.Eq{"c.organization_pkid": orgPkID}).
		OrderBy("c.created_at DESC", "c.pkid DESC").
		Limit(pageSize).
		Offset(db.Offset(page, pageSize))

	ret, err := scanAll[types.Caregiver](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}

	return ret, nil
}

// UpdateCaregiver persists the self editable profile fields
func (s *Storage) UpdateCaregiver(ctx context.Context, c *types.Caregiver) (*types.Caregiver, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateCaregiver")
	defer span.End()

	q := s.db.Statement(ctx).
		Update("caregivers").
		SetMap(map[string]interface{}{
			"first_name":      c.FirstName,
			"last_name":       c.LastName,
			"date_of_birth":   c.DateOfBirth,
			"marital_status":  c.MaritalStatus,
			"gender":          c.Gender,
			"profile_picture": c.ProfilePicture,
			"phone_number":    c.PhoneNumber,
			"address":         c.Address,
			"updated_at":      s.now(),
		}).
		Where(sq.Eq{"pkid": c.PkID}).
		Suffix(returning(caregiverColumns...))

	updated, err := scanOne[types.Caregiver](ctx, q)
	if err != nil {
		return nil, lookupError(err, "caregiver")
	}

	updated.Email = c.Email
	updated.UserID = c.UserID

	return updated, nil
}
