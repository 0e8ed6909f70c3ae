// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"net/http"
	"strings"

	"github.com/canonical/care-service/internal/apierror"
	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

const (
	AccessCookieName  = "access"
	RefreshCookieName = "refresh"
)

var ErrNotAuthenticated = apierror.New(apierror.KindUnauthorized, "not_authenticated", "Authentication credentials were not provided.")
var ErrInvalidAccessToken = apierror.New(apierror.KindUnauthorized, "token_not_valid", "Given token not valid for any token type.")

type Middleware struct {
	verifier TokenVerifierInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authenticate requires an access token, from the Authorization header or the access cookie
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authenticate")
			defer span.End()

			token, found := m.getBearerToken(r.Header)
			if !found {
				token, found = m.getCookieToken(r)
			}

			if !found {
				httptypes.WriteError(w, ErrNotAuthenticated, m.logger)
				return
			}

			principal, err := m.verifier.VerifyToken(ctx, token)
			if err != nil {
				m.logger.Debugf("JWT verification failed: %v", err)
				m.logger.Security().AuthnFailure(r.RemoteAddr, "invalid access token")
				httptypes.WriteError(w, ErrInvalidAccessToken, m.logger)
				return
			}

			ctx = WithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) getBearerToken(headers http.Header) (string, bool) {
	scheme, token, ok := strings.Cut(headers.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

func (m *Middleware) getCookieToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(AccessCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}

	return c.Value, true
}

func NewMiddleware(verifier TokenVerifierInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		verifier: verifier,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
