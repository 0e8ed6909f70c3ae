// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"
	"fmt"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

type Authorizer struct {
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Check evaluates the policy for r, a denial is logged as a security event and returned as permission_denied
func (a *Authorizer) Check(ctx context.Context, r Request) error {
	_, span := a.tracer.Start(ctx, "authorization.Authorizer.Check")
	defer span.End()

	if Decide(r) == Allow {
		return nil
	}

	a.logger.Security().AuthzFailure(r.Subject, fmt.Sprintf("%s:%d", r.Action, r.ResourceTenant))

	return apierror.ErrForbidden
}

func NewAuthorizer(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Authorizer {
	authorizer := new(Authorizer)
	authorizer.tracer = tracer
	authorizer.monitor = monitor
	authorizer.logger = logger

	return authorizer
}
