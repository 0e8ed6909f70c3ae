// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"

	"github.com/canonical/care-service/internal/types"
)

// Context is the authenticated caller bound to its tenant.
// Exactly one of Caregiver and Patient is set for those roles, both are nil for organizations.
type Context struct {
	Identity     *types.Identity
	Organization *types.Organization
	Caregiver    *types.Caregiver
	Patient      *types.Patient
}

// TenantPkID is the internal key of the caller's organization
func (c *Context) TenantPkID() int64 {
	if c == nil || c.Organization == nil {
		return 0
	}
	return c.Organization.PkID
}

// Role is the role of the caller, organization admins act as organizations
func (c *Context) Role() types.Role {
	if c == nil || c.Identity == nil {
		return ""
	}
	return c.Identity.Role
}

// FullName is the display name of the caller
func (c *Context) FullName() string {
	switch {
	case c.Caregiver != nil:
		return types.FullName(c.Identity, c.Caregiver)
	case c.Patient != nil:
		return types.FullName(c.Identity, c.Patient)
	default:
		return types.FullName(c.Identity, c.Organization)
	}
}

type contextKey struct{}

var tenantContextKey = contextKey{}

func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, c)
}

// FromContext returns the tenant bound by the Resolve middleware
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(tenantContextKey).(*Context)
	return c, ok && c != nil
}
