// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"net/http"

	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/pkg/authentication"
)

type Middleware struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Resolve binds the authenticated principal to its identity and tenant, it must run after
// authentication.Middleware.Authenticate
func (m *Middleware) Resolve() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "tenant.Middleware.Resolve")
			defer span.End()

			principal, ok := authentication.GetPrincipal(ctx)
			if !ok {
				httptypes.WriteError(w, authentication.ErrNotAuthenticated, m.logger)
				return
			}

			c, err := m.service.Load(ctx, principal.UserID)
			if err != nil {
				httptypes.WriteError(w, err, m.logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(ctx, c)))
		})
	}
}

func NewMiddleware(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
