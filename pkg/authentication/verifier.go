// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

// JWTVerifier accepts the access tokens issued at login
type JWTVerifier struct {
	parser TokenParserInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (v *JWTVerifier) VerifyToken(ctx context.Context, rawToken string) (*Principal, error) {
	_, span := v.tracer.Start(ctx, "authentication.JWTVerifier.VerifyToken")
	defer span.End()

	c, err := v.parser.Parse(rawToken, credentials.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	if !c.Role.Valid() {
		return nil, credentials.ErrInvalidToken
	}

	return &Principal{UserID: c.UserID, Role: c.Role}, nil
}

func NewJWTVerifier(parser TokenParserInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *JWTVerifier {
	v := new(JWTVerifier)
	v.parser = parser

	v.tracer = tracer
	v.monitor = monitor
	v.logger = logger

	return v
}
