// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package mail

import (
	"strings"
	"testing"
	"time"
)

func TestRenderTemplates(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testCases := []struct {
		name     string
		data     any
		contains []string
	}{
		{
			name:     TemplateActivation,
			data:     map[string]any{"Name": "Acme", "Link": "https://app/auth/verify-email/MQ/tok", "ExpiresIn": "72h0m0s"},
			contains: []string{"Hello Acme", "https://app/auth/verify-email/MQ/tok"},
		},
		{
			name: TemplateInvitation,
			data: map[string]any{
				"Organization": "Lagos <General>",
				"Role":         "Nurse",
				"Link":         "https://app/caregivers/accept-invitation/abc",
				"ExpiresAt":    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			},
			contains: []string{"Lagos &lt;General&gt;", "as a Nurse", "01 May 2026"},
		},
		{
			name:     TemplatePatientWelcome,
			data:     map[string]any{"Name": "Doe Jane", "Organization": "Acme", "MedicalID": "ACME_0A1B2C3D", "ActivationLink": "a", "PasswordLink": "b", "ExpiresIn": "72h"},
			contains: []string{"ACME_0A1B2C3D"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := r.Render(tc.name, tc.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, c := range tc.contains {
				if !strings.Contains(out, c) {
					t.Errorf("expected %q in output:\n%s", c, out)
				}
			}
		})
	}
}

func TestNewMsgRejectsBadRecipient(t *testing.T) {
	if _, err := newMsg("no-reply@care.ng", Message{To: "not an address", Subject: "x", HTML: "<p/>"}); err == nil {
		t.Errorf("expected error for invalid recipient")
	}
}
