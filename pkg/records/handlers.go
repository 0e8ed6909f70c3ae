// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package records

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/care-service/internal/apierror"
	httptypes "github.com/canonical/care-service/internal/http/types"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/pkg/authentication"
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

// RegisterAuthenticatedEndpoints mounts the endpoints needing only an authenticated caller,
// a deleted organization has no tenant left to resolve
func (a *API) RegisterAuthenticatedEndpoints(mux chi.Router) {
	mux.Post("/api/v1/organizations/profile/restore", a.restoreOrganization)
}

// RegisterEndpoints mounts the endpoints requiring a resolved tenant
func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Get("/api/v1/organizations/profile", a.withCaller(a.getOrganization))
	mux.Patch("/api/v1/organizations/profile", a.withCaller(a.updateOrganization))
	mux.Delete("/api/v1/organizations/profile", a.withCaller(a.deleteOrganization))

	mux.Get("/api/v1/caregivers", a.withCaller(a.listCaregivers))
	mux.Get("/api/v1/caregivers/{id}", a.withCaller(a.getCaregiver))
	mux.Patch("/api/v1/caregivers/{id}", a.withCaller(a.updateCaregiver))
	mux.Delete("/api/v1/caregivers/{id}", a.withCaller(a.deleteCaregiver))
	mux.Post("/api/v1/caregivers/{id}/restore", a.withCaller(a.restoreCaregiver))
	mux.Delete("/api/v1/caregivers/{id}/hard", a.withCaller(a.hardDeleteCaregiver))

	mux.Get("/api/v1/patients", a.withCaller(a.listPatients))
	mux.Post("/api/v1/patients", a.withCaller(a.registerPatient))
	mux.Get("/api/v1/patients/diagnoses/latest", a.withCaller(a.listLatestDiagnoses))
	mux.Get("/api/v1/patients/{id}", a.withCaller(a.getPatient))
	mux.Patch("/api/v1/patients/{id}", a.withCaller(a.updatePatient))
	mux.Delete("/api/v1/patients/{id}", a.withCaller(a.deletePatient))
	mux.Post("/api/v1/patients/{id}/restore", a.withCaller(a.restorePatient))
	mux.Delete("/api/v1/patients/{id}/hard", a.withCaller(a.hardDeletePatient))
	mux.Get("/api/v1/patients/{id}/diagnoses", a.withCaller(a.listDiagnoses))

	mux.Post("/api/v1/diagnoses", a.withCaller(a.createDiagnosis))
	mux.Get("/api/v1/diagnoses/{id}", a.withCaller(a.getDiagnosis))
	mux.Patch("/api/v1/diagnoses/{id}", a.withCaller(a.updateDiagnosis))
	mux.Delete("/api/v1/diagnoses/{id}", a.withCaller(a.deleteDiagnosis))
	mux.Post("/api/v1/diagnoses/{id}/restore", a.withCaller(a.restoreDiagnosis))

	mux.Post("/api/v1/uploads/{kind}", a.withCaller(a.presignUpload))
}

type callerHandler func(w http.ResponseWriter, r *http.Request, caller *tenant.Context)

func (a *API) withCaller(next callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := tenant.FromContext(r.Context())
		if !ok {
			httptypes.WriteError(w, tenant.ErrTenantNotFound, a.logger)
			return
		}

		next(w, r, caller)
	}
}

func (a *API) writeList(w http.ResponseWriter, message string, data interface{}, page httptypes.Pagination) {
	httptypes.WriteJSON(w, http.StatusOK, httptypes.Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    &page,
	})
}

func parseScope(r *http.Request) (softdelete.Scope, error) {
	scope, err := softdelete.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		return scope, ErrInvalidScope
	}
	return scope, nil
}

func (a *API) getOrganization(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	org, err := a.service.GetOrganization(r.Context(), caller)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Organization profile retrieved successfully.", org)
}

func (a *API) updateOrganization(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(OrganizationUpdate)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	org, err := a.service.UpdateOrganization(r.Context(), caller, *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Organization profile updated successfully.", org)
}

func (a *API) deleteOrganization(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.DeleteOrganization(r.Context(), caller); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Organization deleted successfully.", nil)
}

func (a *API) restoreOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := authentication.GetPrincipal(r.Context())
	if !ok {
		httptypes.WriteError(w, authentication.ErrNotAuthenticated, a.logger)
		return
	}

	org, err := a.service.RestoreOrganization(r.Context(), principal.UserID)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Organization restored successfully.", org)
}

func (a *API) listCaregivers(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	scope, err := parseScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	page := httptypes.ParsePagination(r)

	caregivers, err := a.service.ListCaregivers(r.Context(), caller, scope, page.Page, page.Size)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	a.writeList(w, "Caregivers retrieved successfully.", caregivers, page)
}

func (a *API) getCaregiver(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	c, err := a.service.GetCaregiver(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Caregiver retrieved successfully.", c)
}

func (a *API) updateCaregiver(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(CaregiverUpdate)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	c, err := a.service.UpdateCaregiver(r.Context(), caller, chi.URLParam(r, "id"), *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Caregiver profile updated successfully.", c)
}

func (a *API) deleteCaregiver(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.DeleteCaregiver(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Caregiver deleted successfully.", nil)
}

func (a *API) restoreCaregiver(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	c, err := a.service.RestoreCaregiver(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Caregiver restored successfully.", c)
}

func (a *API) hardDeleteCaregiver(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.HardDeleteCaregiver(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Caregiver permanently deleted.", nil)
}

func (a *API) listPatients(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	scope, err := parseScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	page := httptypes.ParsePagination(r)

	patients, err := a.service.ListPatients(r.Context(), caller, scope, r.URL.Query().Get("search"), page.Page, page.Size)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	a.writeList(w, "Patients retrieved successfully.", patients, page)
}

func (a *API) registerPatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(PatientRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	p, err := a.service.RegisterPatient(r.Context(), caller, *req)
	if apierror.IsPartial(err) {
		httptypes.WritePartial(w, http.StatusCreated, p, err)
		return
	}

	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Patient registered successfully. A welcome email is being sent.", p)
}

func (a *API) getPatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	p, err := a.service.GetPatient(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Patient retrieved successfully.", p)
}

func (a *API) updatePatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(PatientUpdate)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	p, err := a.service.UpdatePatient(r.Context(), caller, chi.URLParam(r, "id"), *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Patient updated successfully.", p)
}

func (a *API) deletePatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.DeletePatient(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Patient deleted successfully.", nil)
}

func (a *API) restorePatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	p, err := a.service.RestorePatient(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Patient restored successfully.", p)
}

func (a *API) hardDeletePatient(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.HardDeletePatient(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Patient permanently deleted.", nil)
}

func (a *API) listDiagnoses(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	q := r.URL.Query()

	diagnoses, err := a.service.ListDiagnoses(r.Context(), caller, chi.URLParam(r, "id"), q.Get("search"), q.Get("ordering"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Diagnoses retrieved successfully.", diagnoses)
}

func (a *API) listLatestDiagnoses(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	latest, err := a.service.ListLatestDiagnoses(r.Context(), caller)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Latest diagnoses retrieved successfully.", latest)
}

func (a *API) createDiagnosis(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(DiagnosisRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	d, err := a.service.CreateDiagnosis(r.Context(), caller, *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Diagnosis created successfully.", d)
}

func (a *API) getDiagnosis(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	d, err := a.service.GetDiagnosis(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Diagnosis retrieved successfully.", d)
}

func (a *API) updateDiagnosis(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(DiagnosisUpdate)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	d, err := a.service.UpdateDiagnosis(r.Context(), caller, chi.URLParam(r, "id"), *req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Diagnosis updated successfully.", d)
}

func (a *API) deleteDiagnosis(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	if err := a.service.DeleteDiagnosis(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Diagnosis deleted successfully.", nil)
}

func (a *API) restoreDiagnosis(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	d, err := a.service.RestoreDiagnosis(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusOK, "Diagnosis restored successfully.", d)
}

func (a *API) presignUpload(w http.ResponseWriter, r *http.Request, caller *tenant.Context) {
	req := new(UploadRequest)
	if err := httptypes.Decode(r, req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	upload, err := a.service.PresignUpload(r.Context(), caller, chi.URLParam(r, "kind"), req.ContentType)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteSuccess(w, http.StatusCreated, "Upload URL created successfully.", upload)
}
