// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/canonical/care-service/internal/credentials"
)

type TokenVerifierInterface interface {
	// VerifyToken verifies a raw access token and returns the caller it was issued to
	VerifyToken(ctx context.Context, rawToken string) (*Principal, error)
}

type TokenParserInterface interface {
	Parse(token string, tokenType credentials.TokenType) (*credentials.Claims, error)
}
