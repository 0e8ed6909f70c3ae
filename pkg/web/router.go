// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/pkg/accounts"
	"github.com/canonical/care-service/pkg/authentication"
	"github.com/canonical/care-service/pkg/invites"
	"github.com/canonical/care-service/pkg/metrics"
	"github.com/canonical/care-service/pkg/records"
	"github.com/canonical/care-service/pkg/status"
	"github.com/canonical/care-service/pkg/tenant"
)

// Config carries the HTTP facing knobs of the router
type Config struct {
	AllowedOrigins []string
	AuthRateLimit  int
	Cookies        accounts.CookieConfig
}

// Services groups the business services the router exposes
type Services struct {
	Accounts accounts.ServiceInterface
	Invites  invites.ServiceInterface
	Records  records.ServiceInterface
	Tenants  tenant.ServiceInterface
	Verifier authentication.TokenVerifierInterface
	Checks   map[string]status.CheckerInterface
}

func NewRouter(
	cfg Config,
	services Services,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		middleware.Recoverer,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(cfg.AllowedOrigins),
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(services.Checks, tracer, monitor, logger).RegisterEndpoints(router)

	authn := authentication.NewMiddleware(services.Verifier, tracer, monitor, logger).Authenticate()
	resolve := tenant.NewMiddleware(services.Tenants, tracer, monitor, logger).Resolve()

	invitesAPI := invites.NewAPI(services.Invites, logger)
	recordsAPI := records.NewAPI(services.Records, logger)

	// services own their transactions, each one commits before its handler responds
	accounts.NewAPI(services.Accounts, cfg.Cookies, rateLimit(cfg.AuthRateLimit), logger).RegisterEndpoints(router)
	invitesAPI.RegisterPublicEndpoints(router)

	router.Group(func(r chi.Router) {
		r.Use(authn)

		recordsAPI.RegisterAuthenticatedEndpoints(r)

		r.Group(func(r chi.Router) {
			r.Use(resolve)

			tenant.NewAPI(logger).RegisterEndpoints(r)
			invitesAPI.RegisterEndpoints(r)
			recordsAPI.RegisterEndpoints(r)
		})
	})

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

// rateLimit throttles per client address, a non positive limit disables it
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return nil
	}

	return httprate.LimitByIP(perMinute, time.Minute)
}

func middlewareCORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(
		cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Link", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	)
}
