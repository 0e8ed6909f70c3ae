// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/canonical/care-service/internal/db"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/tracing"
)

// Entity names a soft deletable table
type Entity string

const (
	EntityIdentity      Entity = "identity"
	EntityOrganization  Entity = "organization"
	EntityCaregiver     Entity = "caregiver"
	EntityPatient       Entity = "patient"
	EntityMedicalRecord Entity = "medical_record"
	EntityDiagnosis     Entity = "diagnosis"
	EntityVitalSign     Entity = "vital_sign"
)

var tables = map[Entity]softdelete.Table{
	EntityIdentity:      {Name: "identities", Toggles: []string{"is_active", "is_verified"}},
	EntityOrganization:  {Name: "organizations"},
	EntityCaregiver:     {Name: "caregivers"},
	EntityPatient:       {Name: "patients"},
	EntityMedicalRecord: {Name: "patient_medical_records"},
	EntityDiagnosis:     {Name: "patient_diagnoses"},
	EntityVitalSign:     {Name: "vital_signs"},
}

type queryer interface {
	QueryContext(context.Context) (*sql.Rows, error)
}

type Storage struct {
	db db.DBClientInterface

	now func() time.Time

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c
	s.now = time.Now

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}

// WithTx runs fn inside a single transaction, every storage call made with the context passed to fn joins it
func (s *Storage) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return s.db.WithTx(ctx, fn)
}

// SoftDelete flags every row of entity with one of the given internal ids as deleted, in a single statement
func (s *Storage) SoftDelete(ctx context.Context, entity Entity, pkids ...int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.SoftDelete")
	defer span.End()

	table, err := tableOf(entity)
	if err != nil {
		return 0, err
	}

	if len(pkids) == 0 {
		return 0, nil
	}

	res, err := table.Delete(s.db.Statement(ctx), sq.Eq{"pkid": pkids}, s.now()).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete %s: %w", entity, err)
	}

	return res.RowsAffected()
}

// Restore reverts SoftDelete for the given internal ids, rows not deleted are left untouched
func (s *Storage) Restore(ctx context.Context, entity Entity, pkids ...int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.Restore")
	defer span.End()

	table, err := tableOf(entity)
	if err != nil {
		return 0, err
	}

	if len(pkids) == 0 {
		return 0, nil
	}

	res, err := table.Restore(s.db.Statement(ctx), sq.Eq{"pkid": pkids}, s.now()).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to restore %s: %w", entity, err)
	}

	return res.RowsAffected()
}

// HardDelete physically removes rows, foreign key violations surface as ErrForeignKeyViolation
func (s *Storage) HardDelete(ctx context.Context, entity Entity, pkids ...int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.HardDelete")
	defer span.End()

	table, err := tableOf(entity)
	if err != nil {
		return 0, err
	}

	if len(pkids) == 0 {
		return 0, nil
	}

	res, err := table.HardDelete(s.db.Statement(ctx), sq.Eq{"pkid": pkids}).ExecContext(ctx)
	if err != nil {
		return 0, wrapConstraintErrors(err, fmt.Sprintf("failed to hard delete %s", entity))
	}

	return res.RowsAffected()
}

func tableOf(entity Entity) (softdelete.Table, error) {
	t, ok := tables[entity]
	if !ok {
		return softdelete.Table{}, fmt.Errorf("unknown entity %q", entity)
	}
	return t, nil
}

func scanOne[T any](ctx context.Context, q queryer) (*T, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	v := new(T)
	if err := sqlscan.ScanOne(v, rows); err != nil {
		if sqlscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return v, nil
}

func scanAll[T any](ctx context.Context, q queryer) ([]*T, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*T, 0)
	if err := sqlscan.ScanAll(&ret, rows); err != nil {
		return nil, err
	}

	return ret, nil
}

// lookupError keeps ErrNotFound comparable and adds context to anything else
func lookupError(err error, what string) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func columns(alias string, names ...string) []string {
	ret := make([]string, 0, len(names))
	for _, n := range names {
		ret = append(ret, alias+"."+n)
	}
	return ret
}

func returning(names ...string) string {
	return "RETURNING " + strings.Join(names, ", ")
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}
