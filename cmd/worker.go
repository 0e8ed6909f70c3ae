// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/canonical/care-service/internal/mail"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/pkg/notifications"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "worker consumes the email tasks",
	Long:  `Launch the background worker delivering activation, password reset, invitation and welcome emails`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return work(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func work(ctx context.Context) error {
	i, err := newInfra(ctx, "care-worker")
	if err != nil {
		return err
	}
	defer i.Close()

	specs, logger, tracer, monitor := i.specs, i.logger, i.tracer, i.monitor

	sender, err := mail.NewSender(
		mail.Config{
			Host:     specs.SMTPHost,
			Port:     specs.SMTPPort,
			Username: specs.SMTPUsername,
			Password: specs.SMTPPassword,
			From:     specs.EmailFrom,
		},
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return err
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse email templates: %w", err)
	}

	worker := notifications.NewWorker(
		notifications.WorkerConfig{
			FrontendURL:      specs.FrontendURL,
			TokenTimeout:     specs.AccountTokenTimeout,
			InviteMaxRetries: specs.InviteEmailMaxRetries,
			InviteRetryDelay: specs.InviteEmailRetryDelay,
		},
		i.storage,
		i.bus,
		sender,
		renderer,
		tokens.NewGenerator(specs.SecretKey, specs.AccountTokenTimeout),
		tracer,
		monitor,
		logger,
	)

	sub, err := worker.Start(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	logger.Security().SystemStartup()
	logger.Info("worker consuming email tasks")

	<-ctx.Done()

	logger.Security().SystemShutdown()

	return nil
}
