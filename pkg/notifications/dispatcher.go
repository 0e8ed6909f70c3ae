// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

import (
	"context"
	"fmt"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

// Dispatcher publishes email tasks to the queue
type Dispatcher struct {
	publisher PublisherInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (d *Dispatcher) EnqueueActivation(ctx context.Context, userID string) error {
	ctx, span := d.tracer.Start(ctx, "notifications.Dispatcher.EnqueueActivation")
	defer span.End()

	return d.enqueue(ctx, SubjectActivation, Task{UserID: userID})
}

func (d *Dispatcher) EnqueuePasswordReset(ctx context.Context, userID string) error {
	ctx, span := d.tracer.Start(ctx, "notifications.Dispatcher.EnqueuePasswordReset")
	defer span.End()

	return d.enqueue(ctx, SubjectPasswordReset, Task{UserID: userID})
}

func (d *Dispatcher) EnqueueInvitation(ctx context.Context, inviteID string) error {
	ctx, span := d.tracer.Start(ctx, "notifications.Dispatcher.EnqueueInvitation")
	defer span.End()

	return d.enqueue(ctx, SubjectInvitation, Task{InviteID: inviteID})
}

func (d *Dispatcher) EnqueuePatientWelcome(ctx context.Context, userID string) error {
	ctx, span := d.tracer.Start(ctx, "notifications.Dispatcher.EnqueuePatientWelcome")
	defer span.End()

	return d.enqueue(ctx, SubjectPatientWelcome, Task{UserID: userID})
}

func (d *Dispatcher) enqueue(ctx context.Context, subject string, task Task) error {
	if err := d.publisher.Publish(ctx, subject, task); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", subject, err)
	}

	d.logger.Debugf("enqueued %s %+v", subject, task)

	return nil
}

func NewDispatcher(publisher PublisherInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Dispatcher {
	d := new(Dispatcher)

	d.publisher = publisher

	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	return d
}
