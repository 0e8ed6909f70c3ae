// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/types"
)

// Me describes the authenticated caller and its tenant
type Me struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FullName            string     `json:"full_name"`
	Role                types.Role `json:"role"`
	IsOrganizationAdmin bool       `json:"is_organization_admin"`
	OrganizationID      string     `json:"organization_id"`
	OrganizationName    string     `json:"organization_name"`
	ProfileID           string     `json:"profile_id,omitempty"`
}

type API struct {
	logger logging.LoggerInterface
}

func NewAPI(logger logging.LoggerInterface) *API {
	return &API{
		logger: logger,
	}
}

// RegisterEndpoints mounts the caller endpoints, mux must be guarded by Middleware.Resolve
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Get("/api/v1/accounts/me", a.me)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	c, ok := FromContext(r.Context())
	if !ok {
		httptypes.WriteError(w, ErrTenantNotFound, a.logger)
		return
	}

	me := Me{
		ID:                  c.Identity.ID,
		Email:               c.Identity.Email,
		FullName:            c.FullName(),
		Role:                c.Identity.Role,
		IsOrganizationAdmin: c.Identity.IsOrganizationAdmin,
		OrganizationID:      c.Organization.ID,
		OrganizationName:    c.Organization.Name,
	}

	switch {
	case c.Caregiver != nil:
		me.ProfileID = c.Caregiver.ID
	case c.Patient != nil:
		me.ProfileID = c.Patient.ID
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully.", me)
}
