// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/mail"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/queue"
	"github.com/canonical/care-service/internal/softdelete"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
)

type WorkerConfig struct {
	FrontendURL  string
	TokenTimeout time.Duration
	// InviteMaxRetries bounds the delivery attempts of invitation emails
	InviteMaxRetries int
	InviteRetryDelay time.Duration
}

// Worker consumes email tasks, builds the links and sends the mail
type Worker struct {
	storage    StorageInterface
	subscriber SubscriberInterface
	sender     SenderInterface
	renderer   RendererInterface
	tokens     TokenGeneratorInterface

	cfg WorkerConfig

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Start subscribes the worker to every email task, consumption stops when ctx is done
func (w *Worker) Start(ctx context.Context) (io.Closer, error) {
	return w.subscriber.Subscribe(ctx, SubjectEmails, queue.DurableName, w.Handle)
}

// Handle processes one task. Failures are logged and the task is acknowledged, except a
// failed invitation email which is handed back to the broker for a delayed redelivery.
func (w *Worker) Handle(ctx context.Context, subject string, data []byte) error {
	ctx, span := w.tracer.Start(ctx, "notifications.Worker.Handle")
	defer span.End()

	task := new(Task)
	if err := json.Unmarshal(data, task); err != nil {
		w.logger.Errorf("dropping malformed task on %s: %v", subject, err)
		return nil
	}

	var err error

	switch subject {
	case SubjectActivation:
		err = w.sendActivation(ctx, task.UserID)
	case SubjectPasswordReset:
		err = w.sendPasswordReset(ctx, task.UserID)
	case SubjectPatientWelcome:
		err = w.sendPatientWelcome(ctx, task.UserID)
	case SubjectInvitation:
		err = w.sendInvitation(ctx, task.InviteID)
	default:
		w.logger.Errorf("dropping task on unknown subject %s", subject)
		return nil
	}

	var retry *queue.RetryError

	outcome := "sent"
	switch {
	case errors.As(err, &retry):
		outcome = "retried"
	case err != nil:
		outcome = "failed"
		w.logger.Errorf("failed to process %s: %v", subject, err)
	}

	kind := strings.TrimPrefix(subject, "tasks.email.")
	if mErr := w.monitor.IncNotificationCounter(map[string]string{"kind": kind, "outcome": outcome}); mErr != nil {
		w.logger.Debugf("failed to count %s email: %v", kind, mErr)
	}

	// only a scheduled retry goes back to the broker, other failures are acknowledged
	if retry != nil {
		return retry
	}

	return nil
}

func (w *Worker) sendActivation(ctx context.Context, userID string) error {
	identity, err := w.storage.GetIdentityByID(ctx, userID, softdelete.Alive)
	if err != nil {
		return fmt.Errorf("failed to load identity %s: %w", userID, err)
	}

	link, err := w.link(identity, tokens.PurposeActivation, "auth/verify-email")
	if err != nil {
		return err
	}

	html, err := w.renderer.Render(mail.TemplateActivation, map[string]any{
		"Name":      w.displayName(ctx, identity),
		"Link":      link,
		"ExpiresIn": humanize(w.cfg.TokenTimeout),
	})
	if err != nil {
		return err
	}

	return w.sender.Send(ctx, mail.Message{To: identity.Email, Subject: "Verify your email", HTML: html})
}

func (w *Worker) sendPasswordReset(ctx context.Context, userID string) error {
	identity, err := w.storage.GetIdentityByID(ctx, userID, softdelete.Alive)
	if err != nil {
		return fmt.Errorf("failed to load identity %s: %w", userID, err)
	}

	link, err := w.link(identity, tokens.PurposePasswordReset, "auth/reset-password")
	if err != nil {
		return err
	}

	html, err := w.renderer.Render(mail.TemplatePasswordReset, map[string]any{
		"Name":      w.displayName(ctx, identity),
		"Link":      link,
		"ExpiresIn": humanize(w.cfg.TokenTimeout),
	})
	if err != nil {
		return err
	}

	return w.sender.Send(ctx, mail.Message{To: identity.Email, Subject: "Reset your password", HTML: html})
}

func (w *Worker) sendPatientWelcome(ctx context.Context, userID string) error {
	identity, err := w.storage.GetIdentityByID(ctx, userID, softdelete.Alive)
	if err != nil {
		return fmt.Errorf("failed to load identity %s: %w", userID, err)
	}

	patient, err := w.storage.GetPatientByUserPkID(ctx, identity.PkID, softdelete.Alive)
	if err != nil {
		return fmt.Errorf("failed to load patient of %s: %w", userID, err)
	}

	org, err := w.storage.GetOrganizationByPkID(ctx, patient.OrganizationPkID, softdelete.Alive)
	if err != nil {
		return fmt.Errorf("failed to load organization of %s: %w", userID, err)
	}

	activation, err := w.link(identity, tokens.PurposeActivation, "auth/verify-email")
	if err != nil {
		return err
	}

	password, err := w.link(identity, tokens.PurposePasswordReset, "auth/reset-password")
	if err != nil {
		return err
	}

	html, err := w.renderer.Render(mail.TemplatePatientWelcome, map[string]any{
		"Name":           types.FullName(identity, patient),
		"Organization":   org.Name,
		"MedicalID":      patient.MedicalID,
		"ActivationLink": activation,
		"PasswordLink":   password,
		"ExpiresIn":      humanize(w.cfg.TokenTimeout),
	})
	if err != nil {
		return err
	}

	return w.sender.Send(ctx, mail.Message{To: identity.Email, Subject: fmt.Sprintf("Welcome to %s", org.Name), HTML: html})
}

func (w *Worker) sendInvitation(ctx context.Context, inviteID string) error {
	invite, err := w.storage.GetInviteByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("failed to load invite %s: %w", inviteID, err)
	}

	html, err := w.renderer.Render(mail.TemplateInvitation, map[string]any{
		"Organization": invite.OrganizationName,
		"Role":         invite.Role,
		"Link":         fmt.Sprintf("%s/caregivers/accept-invitation/%s", w.frontend(), invite.Token),
		"ExpiresAt":    invite.ExpiresAt,
	})
	if err != nil {
		return err
	}

	m := mail.Message{
		To:      invite.Email,
		Subject: fmt.Sprintf("Invitation to join %s as a %s", invite.OrganizationName, invite.Role),
		HTML:    html,
	}

	err = w.sender.Send(ctx, m)
	if err == nil {
		return nil
	}

	attempt, tries := queue.Attempt(ctx), w.inviteTries()
	if attempt < tries {
		delay := w.retryDelay(attempt)
		w.logger.Infof("retrying invitation email to %s in %s, attempt %d of %d: %v", invite.Email, delay, attempt, tries, err)
		return queue.Retry(err, delay)
	}

	w.logger.Errorf("giving up on invitation email to %s after %d attempts: %v", invite.Email, attempt, err)
	_ = w.monitor.SetDependencyAvailability(map[string]string{"component": "smtp"}, 0)

	return err
}

func (w *Worker) inviteTries() int {
	if w.cfg.InviteMaxRetries < 1 {
		return 1
	}
	return w.cfg.InviteMaxRetries
}

// retryDelay grows exponentially from InviteRetryDelay, attempt is the delivery that just failed
func (w *Worker) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InviteRetryDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Hour

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}

	return delay
}

func (w *Worker) link(identity *types.Identity, purpose tokens.Purpose, path string) (string, error) {
	token, err := w.tokens.Make(identity, purpose)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s/%s", w.frontend(), path, tokens.EncodeUID(identity.PkID), token), nil
}

// displayName looks the profile up by role, falling back to the email
func (w *Worker) displayName(ctx context.Context, identity *types.Identity) string {
	var profile interface{}

	switch identity.Role {
	case types.RoleOrganization, types.RoleOrganizationAdmin:
		if o, err := w.storage.GetOrganizationByUserPkID(ctx, identity.PkID, softdelete.AllWithDeleted); err == nil {
			profile = o
		}
	case types.RoleCaregiver:
		if c, err := w.storage.GetCaregiverByUserPkID(ctx, identity.PkID, softdelete.AllWithDeleted); err == nil {
			profile = c
		}
	case types.RolePatient:
		if p, err := w.storage.GetPatientByUserPkID(ctx, identity.PkID, softdelete.AllWithDeleted); err == nil {
			profile = p
		}
	}

	return types.FullName(identity, profile)
}

func (w *Worker) frontend() string {
	return strings.TrimRight(w.cfg.FrontendURL, "/")
}

func humanize(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}

	return d.String()
}

func NewWorker(
	cfg WorkerConfig,
	storage StorageInterface,
	subscriber SubscriberInterface,
	sender SenderInterface,
	renderer RendererInterface,
	generator TokenGeneratorInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Worker {
	w := new(Worker)

	w.cfg = cfg
	w.storage = storage
	w.subscriber = subscriber
	w.sender = sender
	w.renderer = renderer
	w.tokens = generator

	w.tracer = tracer
	w.monitor = monitor
	w.logger = logger

	return w
}
