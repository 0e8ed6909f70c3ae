// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"
)

//go:generate mockgen -build_flags=--mod=mod -package notifications -destination ./mock_notifications.go -source=./interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package notifications -destination ./mock_logger.go -source=../../internal/logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package notifications -destination ./mock_monitor.go -source=../../internal/monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package notifications -destination ./mock_tracing.go -source=../../internal/tracing/interfaces.go

func TestDispatcher(t *testing.T) {
	publishErr := errors.New("nats: no responders")

	testCases := []struct {
		name        string
		span        string
		subject     string
		task        Task
		enqueue     func(*Dispatcher) error
		publishErr  error
		expectedErr error
	}{
		{
			name:    "activation",
			span:    "notifications.Dispatcher.EnqueueActivation",
			subject: SubjectActivation,
			task:    Task{UserID: "user-1"},
			enqueue: func(d *Dispatcher) error { return d.EnqueueActivation(context.Background(), "user-1") },
		},
		{
			name:    "password reset",
			span:    "notifications.Dispatcher.EnqueuePasswordReset",
			subject: SubjectPasswordReset,
			task:    Task{UserID: "user-1"},
			enqueue: func(d *Dispatcher) error { return d.EnqueuePasswordReset(context.Background(), "user-1") },
		},
		{
			name:    "invitation",
			span:    "notifications.Dispatcher.EnqueueInvitation",
			subject: SubjectInvitation,
			task:    Task{InviteID: "invite-1"},
			enqueue: func(d *Dispatcher) error { return d.EnqueueInvitation(context.Background(), "invite-1") },
		},
		{
			name:        "patient welcome publish failure",
			span:        "notifications.Dispatcher.EnqueuePatientWelcome",
			subject:     SubjectPatientWelcome,
			task:        Task{UserID: "user-2"},
			enqueue:     func(d *Dispatcher) error { return d.EnqueuePatientWelcome(context.Background(), "user-2") },
			publishErr:  publishErr,
			expectedErr: publishErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockPublisher := NewMockPublisherInterface(ctrl)
			mockTracer := NewMockTracingInterface(ctrl)
			mockMonitor := NewMockMonitorInterface(ctrl)
			mockLogger := NewMockLoggerInterface(ctrl)

			ctx := context.Background()
			mockTracer.EXPECT().Start(gomock.Any(), tc.span).Return(ctx, trace.SpanFromContext(ctx))
			mockLogger.EXPECT().Debugf(gomock.Any(), gomock.Any()).AnyTimes()
			mockPublisher.EXPECT().Publish(gomock.Any(), tc.subject, tc.task).Return(tc.publishErr)

			err := tc.enqueue(NewDispatcher(mockPublisher, mockTracer, mockMonitor, mockLogger))

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error %v, got %v", tc.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
