// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package softdelete provides logical deletion for persisted entities.
//
// An entity opts in by embedding Model and implementing SoftDeletable. Its table is described
// by a Table, which builds the set-at-a-time statements used by storage. The single row path
// (SoftDeletable.Delete) and the bulk path (Table.Delete) toggle the same columns.
package softdelete

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	ColumnIsDeleted = "is_deleted"
	ColumnDeletedAt = "deleted_at"
	ColumnUpdatedAt = "updated_at"
)

// SoftDeletable is implemented by every entity supporting logical deletion
type SoftDeletable interface {
	Delete(now time.Time)
	Restore()
	Deleted() bool
}

// Model holds the soft delete state, embed it in entities
type Model struct {
	IsDeleted bool       `db:"is_deleted" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// MarkDeleted flags the row as deleted at now, deleting twice only moves the timestamp
func (m *Model) MarkDeleted(now time.Time) {
	t := now
	m.IsDeleted = true
	m.DeletedAt = &t
}

// Unmark clears the deleted flag and timestamp
func (m *Model) Unmark() {
	m.IsDeleted = false
	m.DeletedAt = nil
}

func (m *Model) Deleted() bool {
	return m.IsDeleted
}

// Delete implements SoftDeletable for entities with no extra toggled columns
func (m *Model) Delete(now time.Time) {
	m.MarkDeleted(now)
}

// Restore implements SoftDeletable for entities with no extra toggled columns
func (m *Model) Restore() {
	m.Unmark()
}

// Scope selects which rows a query can see
type Scope int

const (
	// Alive only returns rows not deleted, it is the default
	Alive Scope = iota
	// Dead only returns deleted rows
	Dead
	// AllWithDeleted applies no filter
	AllWithDeleted
)

func (s Scope) String() string {
	switch s {
	case Dead:
		return "dead"
	case AllWithDeleted:
		return "all"
	default:
		return "alive"
	}
}

// ParseScope converts the query parameter representation of a scope
func ParseScope(v string) (Scope, error) {
	switch v {
	case "", "alive":
		return Alive, nil
	case "dead", "deleted":
		return Dead, nil
	case "all":
		return AllWithDeleted, nil
	default:
		return Alive, fmt.Errorf("unknown scope %q", v)
	}
}

// Predicate returns the where clause for the scope, nil when no filter applies.
// alias qualifies the column, pass an empty string for unqualified queries.
func (s Scope) Predicate(alias string) sq.Sqlizer {
	col := qualify(alias, ColumnIsDeleted)

	switch s {
	case Alive:
		return sq.Eq{col: false}
	case Dead:
		return sq.Eq{col: true}
	default:
		return nil
	}
}

// Apply narrows a select to the scope
func (s Scope) Apply(q sq.SelectBuilder, alias string) sq.SelectBuilder {
	if p := s.Predicate(alias); p != nil {
		return q.Where(p)
	}
	return q
}

// Table describes a soft deletable table and the boolean columns that follow its deleted state.
// Toggles are set false on delete and true on restore.
type Table struct {
	Name    string
	Toggles []string
}

// DeleteSet is the column assignment applied when deleting rows of t
func (t Table) DeleteSet(now time.Time) map[string]interface{} {
	set := map[string]interface{}{
		ColumnIsDeleted: true,
		ColumnDeletedAt: now,
		ColumnUpdatedAt: now,
	}
	for _, c := range t.Toggles {
		set[c] = false
	}
	return set
}

// RestoreSet is the column assignment applied when restoring rows of t
func (t Table) RestoreSet(now time.Time) map[string]interface{} {
	set := map[string]interface{}{
		ColumnIsDeleted: false,
		ColumnDeletedAt: nil,
		ColumnUpdatedAt: now,
	}
	for _, c := range t.Toggles {
		set[c] = true
	}
	return set
}

// Delete builds the set-at-a-time soft delete of every row matching where
func (t Table) Delete(b sq.StatementBuilderType, where sq.Sqlizer, now time.Time) sq.UpdateBuilder {
	return b.Update(t.Name).SetMap(t.DeleteSet(now)).Where(where)
}

// Restore builds the set-at-a-time restore of every deleted row matching where
func (t Table) Restore(b sq.StatementBuilderType, where sq.Sqlizer, now time.Time) sq.UpdateBuilder {
	return b.Update(t.Name).SetMap(t.RestoreSet(now)).Where(where).Where(sq.Eq{ColumnIsDeleted: true})
}

// HardDelete builds the physical removal of rows matching where, foreign key policies still apply
func (t Table) HardDelete(b sq.StatementBuilderType, where sq.Sqlizer) sq.DeleteBuilder {
	return b.Delete(t.Name).Where(where)
}

func qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}
