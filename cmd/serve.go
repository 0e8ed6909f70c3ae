// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonical/care-service/internal/authorization"
	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/internal/objectstore"
	"github.com/canonical/care-service/internal/tokens"
	"github.com/canonical/care-service/pkg/accounts"
	"github.com/canonical/care-service/pkg/authentication"
	"github.com/canonical/care-service/pkg/invites"
	"github.com/canonical/care-service/pkg/notifications"
	"github.com/canonical/care-service/pkg/records"
	"github.com/canonical/care-service/pkg/status"
	"github.com/canonical/care-service/pkg/tenant"
	"github.com/canonical/care-service/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	i, err := newInfra(ctx, "care-service")
	if err != nil {
		return err
	}
	defer i.Close()

	specs, logger, tracer, monitor := i.specs, i.logger, i.tracer, i.monitor

	redisClient := credentials.NewRedisClient(specs.RedisAddr, specs.RedisPassword, specs.RedisDB)
	defer redisClient.Close()

	blacklist := credentials.NewRedisBlacklist(redisClient, tracer, monitor, logger)
	issuer := credentials.NewIssuer(
		credentials.Config{
			Secret:          specs.SecretKey,
			AccessLifetime:  specs.AccessTokenLifetime,
			RefreshLifetime: specs.RefreshTokenLifetime,
		},
		blacklist,
		tracer,
		monitor,
		logger,
	)

	objects, err := objectstore.NewStore(
		ctx,
		objectstore.Config{
			Endpoint:       specs.S3Endpoint,
			Region:         specs.S3Region,
			AccessKey:      specs.S3AccessKey,
			SecretKey:      specs.S3SecretKey,
			Bucket:         specs.S3Bucket,
			ForcePathStyle: specs.S3ForcePathStyle,
			PresignTTL:     specs.S3PresignTTL,
		},
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return err
	}

	authorizer := authorization.NewAuthorizer(tracer, monitor, logger)
	dispatcher := notifications.NewDispatcher(i.bus, tracer, monitor, logger)

	services := web.Services{
		Accounts: accounts.NewService(
			i.storage,
			dispatcher,
			tokens.NewGenerator(specs.SecretKey, specs.AccountTokenTimeout),
			issuer,
			tracer,
			monitor,
			logger,
		),
		Invites: invites.NewService(
			invites.Config{Lifetime: specs.InvitationLifetime(), MaxResends: specs.MaxInvitationResends},
			i.storage,
			authorizer,
			dispatcher,
			tracer,
			monitor,
			logger,
		),
		Records:  records.NewService(i.storage, authorizer, dispatcher, objects, tracer, monitor, logger),
		Tenants:  tenant.NewService(i.storage, tracer, monitor, logger),
		Verifier: authentication.NewJWTVerifier(issuer, tracer, monitor, logger),
		Checks: map[string]status.CheckerInterface{
			"postgres": i.db,
			"redis":    blacklist,
			"nats":     i.bus,
		},
	}

	router := web.NewRouter(
		web.Config{
			AllowedOrigins: specs.CORSAllowedOrigins,
			AuthRateLimit:  specs.AuthRateLimit,
			Cookies:        accounts.CookieConfig{Secure: specs.SecureCookies(), Domain: specs.CookieDomain},
		},
		services,
		tracer,
		monitor,
		logger,
	)

	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	serverError := make(chan error, 1)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-serverError:
		return err
	case <-ctx.Done():
	}

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}
