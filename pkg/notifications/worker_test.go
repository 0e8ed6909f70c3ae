// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/mail"
	"github.com/canonical/care-service/internal/queue"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
)

func newTestWorker(t *testing.T, ctrl *gomock.Controller, retries int) (*Worker, *MockStorageInterface, *MockSenderInterface, *MockMonitorInterface) {
	t.Helper()

	renderer, err := mail.NewRenderer()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	mockStorage := NewMockStorageInterface(ctrl)
	mockSubscriber := NewMockSubscriberInterface(ctrl)
	mockSender := NewMockSenderInterface(ctrl)
	mockMonitor := NewMockMonitorInterface(ctrl)
	mockMonitor.EXPECT().IncNotificationCounter(gomock.Any()).Return(nil).AnyTimes()

	cfg := WorkerConfig{
		FrontendURL:      "https://care.example.com/",
		TokenTimeout:     72 * time.Hour,
		InviteMaxRetries: retries,
		InviteRetryDelay: time.Millisecond,
	}

	w := NewWorker(
		cfg,
		mockStorage,
		mockSubscriber,
		mockSender,
		renderer,
		tokens.NewGenerator("secret", cfg.TokenTimeout),
		tracing.NewNoopTracer(),
		mockMonitor,
		logging.NewNoopLogger(),
	)

	return w, mockStorage, mockSender, mockMonitor
}

func TestWorker_Activation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w, mockStorage, mockSender, _ := newTestWorker(t, ctrl, 3)

	identity := &types.Identity{PkID: 12, ID: "user-12", Email: "owner@acme.ng", Role: types.RoleOrganization}

	mockStorage.EXPECT().GetIdentityByID(gomock.Any(), "user-12", softdelete.Alive).Return(identity, nil)
	mockStorage.EXPECT().GetOrganizationByUserPkID(gomock.Any(), int64(12), softdelete.AllWithDeleted).Return(&types.Organization{Name: "Acme Clinic"}, nil)
	mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, m mail.Message) error {
			if m.To != "owner@acme.ng" {
				t.Errorf("unexpected recipient %s", m.To)
			}
			prefix := "https://care.example.com/auth/verify-email/" + tokens.EncodeUID(12) + "/"
			if !strings.Contains(m.HTML, prefix) {
				t.Errorf("expected activation link %s in body", prefix)
			}
			if !strings.Contains(m.HTML, "Acme Clinic") || !strings.Contains(m.HTML, "3 days") {
				t.Errorf("expected name and expiry in body")
			}
			return nil
		},
	)

	if err := w.Handle(context.Background(), SubjectActivation, []byte(`{"user_id":"user-12"}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorker_InvitationRetries(t *testing.T) {
	invite := &types.CaregiverInvite{
		ID:               "invite-1",
		Email:            "nurse@example.com",
		Role:             "Nurse",
		Token:            "3f2b8c7e-8f8e-4c52-9d2a-2f6f0c1d9a11",
		ExpiresAt:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		OrganizationName: "Acme Clinic",
	}
	smtpErr := errors.New("smtp: 421 service not available")

	testCases := []struct {
		name           string
		failures       int
		retries        int
		expectedSends  int
		expectedDelays []time.Duration
		givesUp        bool
	}{
		{name: "first attempt", failures: 0, retries: 3, expectedSends: 1},
		{name: "succeeds on third delivery", failures: 2, retries: 3, expectedSends: 3, expectedDelays: []time.Duration{time.Millisecond, 2 * time.Millisecond}},
		{name: "gives up after max retries", failures: 10, retries: 3, expectedSends: 3, expectedDelays: []time.Duration{time.Millisecond, 2 * time.Millisecond}, givesUp: true},
		{name: "no retries configured", failures: 10, retries: 0, expectedSends: 1, givesUp: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			w, mockStorage, mockSender, mockMonitor := newTestWorker(t, ctrl, tc.retries)

			broker := new(redeliveringSubscriber)
			w.subscriber = broker

			mockStorage.EXPECT().GetInviteByID(gomock.Any(), "invite-1").Return(invite, nil).Times(tc.expectedSends)

			sends := 0
			mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, m mail.Message) error {
					sends++
					if m.Subject != "Invitation to join Acme Clinic as a Nurse" {
						t.Errorf("unexpected subject %q", m.Subject)
					}
					if !strings.Contains(m.HTML, "https://care.example.com/caregivers/accept-invitation/"+invite.Token) {
						t.Errorf("expected accept link in body")
					}
					if sends <= tc.failures {
						return smtpErr
					}
					return nil
				},
			).AnyTimes()

			if tc.givesUp {
				mockMonitor.EXPECT().SetDependencyAvailability(map[string]string{"component": "smtp"}, float64(0)).Return(nil)
			}

			if _, err := w.Start(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			broker.deliver(context.Background(), SubjectInvitation, []byte(`{"invite_id":"invite-1"}`))

			// one send per delivery, the broker schedules the next one
			if sends != tc.expectedSends {
				t.Errorf("expected %d sends, got %d", tc.expectedSends, sends)
			}

			if broker.deliveries != tc.expectedSends {
				t.Errorf("expected %d deliveries, got %d", tc.expectedSends, broker.deliveries)
			}

			if len(broker.delays) != len(tc.expectedDelays) {
				t.Fatalf("expected delays %v, got %v", tc.expectedDelays, broker.delays)
			}

			for i, d := range tc.expectedDelays {
				if got := broker.delays[i]; got < d || got > d+time.Microsecond {
					t.Errorf("delivery %d: expected delay %s, got %s", i+1, d, got)
				}
			}
		})
	}
}

func TestWorker_PatientWelcomeCarriesBothLinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w, mockStorage, mockSender, _ := newTestWorker(t, ctrl, 3)

	identity := &types.Identity{PkID: 30, ID: "user-30", Email: "patient@example.com", Role: types.RolePatient}

	mockStorage.EXPECT().GetIdentityByID(gomock.Any(), "user-30", softdelete.Alive).Return(identity, nil)
	mockStorage.EXPECT().GetPatientByUserPkID(gomock.Any(), int64(30), softdelete.Alive).Return(&types.Patient{OrganizationPkID: 1, FirstName: "Ada", LastName: "Obi", MedicalID: "ACME_1A2B3C4D"}, nil)
	mockStorage.EXPECT().GetOrganizationByPkID(gomock.Any(), int64(1), softdelete.Alive).Return(&types.Organization{Name: "Acme Clinic"}, nil)
	mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, m mail.Message) error {
			for _, want := range []string{"/auth/verify-email/", "/auth/reset-password/", "ACME_1A2B3C4D", "Obi Ada"} {
				if !strings.Contains(m.HTML, want) {
					t.Errorf("expected %q in body", want)
				}
			}
			return nil
		},
	)

	if err := w.Handle(context.Background(), SubjectPatientWelcome, []byte(`{"user_id":"user-30"}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorker_DropsBadTasks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w, mockStorage, _, _ := newTestWorker(t, ctrl, 3)

	mockStorage.EXPECT().GetIdentityByID(gomock.Any(), "gone", softdelete.Alive).Return(nil, errors.New("not found"))

	for _, tc := range []struct {
		subject string
		data    string
	}{
		{subject: SubjectActivation, data: "{"},
		{subject: "tasks.email.unknown", data: "{}"},
		{subject: SubjectPasswordReset, data: `{"user_id":"gone"}`},
	} {
		if err := w.Handle(context.Background(), tc.subject, []byte(tc.data)); err != nil {
			t.Errorf("%s: expected task to be acknowledged, got %v", tc.subject, err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// redeliveringSubscriber plays the broker: a message handed back with a RetryError is
// delivered again with the next attempt number until the handler settles it
type redeliveringSubscriber struct {
	handler    queue.Handler
	deliveries int
	delays     []time.Duration
}

func (s *redeliveringSubscriber) Subscribe(_ context.Context, _, _ string, fn queue.Handler) (io.Closer, error) {
	s.handler = fn
	return closerFunc(func() error { return nil }), nil
}

func (s *redeliveringSubscriber) deliver(ctx context.Context, subject string, data []byte) {
	for attempt := 1; ; attempt++ {
		s.deliveries++

		err := s.handler(queue.WithAttempt(ctx, attempt), subject, data)

		var retry *queue.RetryError
		if !errors.As(err, &retry) {
			return
		}

		s.delays = append(s.delays, retry.Delay)
	}
}
