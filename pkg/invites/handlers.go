// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package invites

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/care-service/internal/apierror"
	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/types"
	"github.com/canonical/care-service/pkg/tenant"
)

type API struct {
	service ServiceInterface

	logger logging.LoggerInterface
}

func NewAPI(service ServiceInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		logger:  logger,
	}
}

// RegisterPublicEndpoints mounts the endpoints reached through the invitation link
func (a *API) RegisterPublicEndpoints(mux chi.Router) {
	mux.Get("/api/v1/invites/caregivers/invite/{token}", a.get)
	mux.Post("/api/v1/invites/caregivers/invite/accept/{token}", a.accept)
}

// RegisterEndpoints mounts the endpoints requiring a resolved tenant
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/api/v1/invites/invite-caregiver", a.invite)
}

func (a *API) invite(w http.ResponseWriter, r *http.Request) {
	caller, ok := tenant.FromContext(r.Context())
	if !ok {
		httptypes.WriteError(w, tenant.ErrTenantNotFound, a.logger)
		return
	}

	req := new(InviteRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	result, err := a.service.Invite(r.Context(), caller, req.Email, req.Role)
	if apierror.IsPartial(err) {
		httptypes.WritePartial(w, http.StatusCreated, invitationView(result.Invite, false), err)
		return
	}

	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Invitation created successfully. Email is being sent.", invitationView(result.Invite, false))
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	invite, err := a.service.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Invitation retrieved successfully.", invitationView(invite, invite.Status == types.InviteStatusPending))
}

func (a *API) accept(w http.ResponseWriter, r *http.Request) {
	req := new(AcceptRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	result, err := a.service.Accept(r.Context(), chi.URLParam(r, "token"), *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Caregiver account created successfully.", AcceptedCaregiver{
		CaregiverID:  result.Caregiver.ID,
		UserID:       result.Identity.ID,
		Email:        result.Identity.Email,
		Organization: result.Organization.Name,
		FirstName:    result.Caregiver.FirstName,
		LastName:     result.Caregiver.LastName,
		Role:         result.Caregiver.CaregiverType,
		StaffNumber:  result.Caregiver.StaffNumber,
	})
}

// invitationView renders invite, details are only exposed while it can be accepted
func invitationView(invite *types.CaregiverInvite, detailed bool) *InvitationView {
	v := &InvitationView{
		InvitationID: invite.ID,
		Email:        invite.Email,
		Role:         invite.Role,
		Status:       invite.Status,
	}

	if detailed {
		v.Organization = invite.OrganizationName
		v.ExpiresAt = &invite.ExpiresAt
		v.ResendCount = &invite.ResendCount
	}

	return v
}
