// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"time"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

type CaregiverInvite struct {
	PkID             int64        `db:"pkid"`
	ID               string       `db:"id"`
	OrganizationPkID int64        `db:"organization_pkid"`
	Email            string       `db:"email"`
	Role             string       `db:"role"`
	Token            string       `db:"token"`
	Status           InviteStatus `db:"status"`
	ExpiresAt        time.Time    `db:"expires_at"`
	ResendCount      int          `db:"resend_count"`
	InvitedByPkID    *int64       `db:"invited_by_pkid"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`

	// OrganizationName is joined from the owning organization
	OrganizationName string `db:"organization_name"`
}

// IsExpired reports whether the invite can no longer be redeemed because of time
func (i *CaregiverInvite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt) || i.Status == InviteStatusExpired
}

// IsActive reports whether the invite is pending and still redeemable
func (i *CaregiverInvite) IsActive(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.IsExpired(now)
}
