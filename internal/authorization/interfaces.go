// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"
)

// AuthorizerInterface gates tenant scoped operations.
// A nil error means the caller may proceed, anything else is a permission_denied API error.
type AuthorizerInterface interface {
	Check(ctx context.Context, r Request) error
}
