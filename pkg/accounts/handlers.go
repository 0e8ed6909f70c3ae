// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/care-service/internal/apierror"
	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/pkg/authentication"
)

type API struct {
	service ServiceInterface
	cookies CookieConfig
	limit   func(http.Handler) http.Handler

	logger logging.LoggerInterface
}

// RegisterEndpoints mounts the unauthenticated account endpoints, the ones open to guessing
// go through the rate limiter
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/api/v1/accounts/organization-signup", a.signup)
	mux.Get("/api/v1/accounts/verify-account/{uidb64}/{token}", a.verify)
	mux.Post("/api/v1/accounts/token/refresh", a.refresh)
	mux.Post("/api/v1/accounts/logout", a.logout)
	mux.Post("/api/v1/accounts/password-reset-confirm/{uidb64}/{token}", a.confirmPasswordReset)

	limited := mux.With(a.limit)
	limited.Post("/api/v1/accounts/login", a.login)
	limited.Post("/api/v1/accounts/resend-activation-link", a.resendActivation)
	limited.Post("/api/v1/accounts/password-reset", a.requestPasswordReset)
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	req := new(SignupRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	result, err := a.service.Signup(r.Context(), *req)
	if apierror.IsPartial(err) {
		httptypes.WritePartial(w, http.StatusCreated, organizationView(result), err)
		return
	}

	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Organization registered successfully.", organizationView(result))
}

func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.Verify(r.Context(), chi.URLParam(r, "uidb64"), chi.URLParam(r, "token"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	if result.AlreadyActive {
		httptypes.WriteSuccess(w, http.StatusOK, "Account is already active.", nil)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Account activated successfully.", nil)
}

func (a *API) resendActivation(w http.ResponseWriter, r *http.Request) {
	req := new(EmailRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	if err := a.service.ResendActivation(r.Context(), req.Email); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Activation link sent successfully.", nil)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	req := new(LoginRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	pair, err := a.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	a.cookies.set(w, pair)
	httptypes.WriteSuccess(w, http.StatusOK, "Login successful.", pair)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := a.refreshToken(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	pair, err := a.service.Refresh(r.Context(), token)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	a.cookies.set(w, pair)
	httptypes.WriteSuccess(w, http.StatusOK, "Token refreshed successfully.", pair)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.cookies.clear(w)

	token, err := a.refreshToken(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	if err := a.service.Logout(r.Context(), token); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Logout successful.", nil)
}

func (a *API) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	req := new(EmailRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	_ = a.service.RequestPasswordReset(r.Context(), req.Email)

	httptypes.WriteSuccess(w, http.StatusOK, "If an account exists for this email, a password reset link has been sent.", nil)
}

func (a *API) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	req := new(PasswordResetConfirmRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	if err := a.service.ConfirmPasswordReset(r.Context(), chi.URLParam(r, "uidb64"), chi.URLParam(r, "token"), *req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Password has been reset successfully.", nil)
}

// refreshToken reads the refresh token from the body, falling back to the refresh cookie
func (a *API) refreshToken(r *http.Request) (string, error) {
	if r.ContentLength > 0 {
		req := new(RefreshRequest)
		if err := httptypes.Decode(r, req); err != nil {
			return "", err
		}

		if req.Refresh != "" {
			return req.Refresh, nil
		}
	}

	if c, err := r.Cookie(authentication.RefreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", ErrInvalidRefreshToken
}

func organizationView(result *SignupResult) *Organization {
	if result == nil || result.Organization == nil {
		return nil
	}

	o := result.Organization

	return &Organization{
		ID:          o.ID,
		Name:        o.Name,
		Acronym:     o.Acronym,
		Email:       result.Identity.Email,
		Slug:        o.Slug,
		Address:     o.Address,
		PhoneNumber: o.PhoneNumber,
	}
}

// NewAPI builds the account endpoints, limit guards the endpoints open to guessing and may be nil
func NewAPI(service ServiceInterface, cookies CookieConfig, limit func(http.Handler) http.Handler, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service
	a.cookies = cookies
	a.limit = limit
	a.logger = logger

	if a.limit == nil {
		a.limit = func(next http.Handler) http.Handler { return next }
	}

	return a
}
