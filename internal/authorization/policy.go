// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"slices"

	"github.com/canonical/care-service/internal/types"
)

type Action string

const (
	ActionInviteCaregiver    Action = "invite_caregiver"
	ActionViewOrganization   Action = "view_organization"
	ActionManageOrganization Action = "manage_organization"
	ActionViewCaregivers     Action = "view_caregivers"
	ActionUpdateOwnProfile   Action = "update_own_profile"
	ActionManageCaregivers   Action = "manage_caregivers"
	ActionRegisterPatient    Action = "register_patient"
	ActionViewPatients       Action = "view_patients"
	ActionViewPatient        Action = "view_patient"
	ActionUpdatePatient      Action = "update_patient"
	ActionManagePatients     Action = "manage_patients"
	ActionViewDiagnoses      Action = "view_diagnoses"
	ActionWriteDiagnoses     Action = "write_diagnoses"
	ActionManageDiagnoses    Action = "manage_diagnoses"
	ActionUpload             Action = "upload"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Request describes one access attempt. Tenants are organization internal ids, Self is set when
// the resource is the caller's own profile or records.
type Request struct {
	Subject        string
	Role           types.Role
	CallerTenant   int64
	ResourceTenant int64
	Action         Action
	Self           bool
}

type rule struct {
	// roles are allowed regardless of ownership
	roles []types.Role
	// selfRoles are allowed only on their own resource
	selfRoles []types.Role
}

var (
	orgRoles      = []types.Role{types.RoleOrganization, types.RoleOrganizationAdmin}
	staffRoles    = []types.Role{types.RoleOrganization, types.RoleOrganizationAdmin, types.RoleCaregiver}
	patientSelf   = []types.Role{types.RolePatient}
	caregiverSelf = []types.Role{types.RoleCaregiver}
	everyoneRoles = []types.Role{types.RoleOrganization, types.RoleOrganizationAdmin, types.RoleCaregiver, types.RolePatient}
)

var policy = map[Action]rule{
	ActionInviteCaregiver:    {roles: orgRoles},
	ActionViewOrganization:   {roles: everyoneRoles},
	ActionManageOrganization: {roles: orgRoles},
	ActionViewCaregivers:     {roles: staffRoles},
	ActionUpdateOwnProfile:   {selfRoles: caregiverSelf},
	ActionManageCaregivers:   {roles: orgRoles},
	ActionRegisterPatient:    {roles: staffRoles},
	ActionViewPatients:       {roles: staffRoles},
	ActionViewPatient:        {roles: staffRoles, selfRoles: patientSelf},
	ActionUpdatePatient:      {roles: staffRoles, selfRoles: patientSelf},
	ActionManagePatients:     {roles: orgRoles},
	ActionViewDiagnoses:      {roles: staffRoles, selfRoles: patientSelf},
	ActionWriteDiagnoses:     {roles: staffRoles},
	ActionManageDiagnoses:    {roles: orgRoles},
	ActionUpload:             {roles: everyoneRoles},
}

// Decide is the single permission predicate of the service.
// Access never crosses tenants: both tenants must be known and equal.
func Decide(r Request) Decision {
	if r.CallerTenant == 0 || r.CallerTenant != r.ResourceTenant {
		return Deny
	}

	p, ok := policy[r.Action]
	if !ok {
		return Deny
	}

	if slices.Contains(p.roles, r.Role) {
		return Allow
	}

	if r.Self && slices.Contains(p.selfRoles, r.Role) {
		return Allow
	}

	return Deny
}
