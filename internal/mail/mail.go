// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers HTML mail over SMTP
type Sender struct {
	client *gomail.Client
	from   string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Sender) Send(ctx context.Context, m Message) error {
	ctx, span := s.tracer.Start(ctx, "mail.Sender.Send")
	defer span.End()

	msg, err := newMsg(s.from, m)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		s.setAvailability(0)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.setAvailability(1)
	s.logger.Debugf("sent %q", m.Subject)

	return nil
}

func (s *Sender) setAvailability(v float64) {
	if err := s.monitor.SetDependencyAvailability(map[string]string{"component": "smtp"}, v); err != nil {
		s.logger.Debugf("failed to record smtp availability: %v", err)
	}
}

func newMsg(from string, m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()

	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)

	return msg, nil
}

func NewSender(cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*Sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}

	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	s := new(Sender)
	s.client = client
	s.from = cfg.From

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s, nil
}
