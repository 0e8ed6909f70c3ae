// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/canonical/care-service/internal/config"
	"github.com/canonical/care-service/internal/db"
	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/monitoring/prometheus"
	"github.com/canonical/care-service/internal/queue"
	"github.com/canonical/care-service/internal/storage"
	"github.com/canonical/care-service/internal/tracing"
)

// infra holds the clients shared by the server and the worker
type infra struct {
	specs *config.EnvSpec

	logger  *logging.Logger
	monitor monitoring.MonitorInterface
	tracer  tracing.TracingInterface

	db      *db.DBClient
	storage *storage.Storage
	bus     *queue.Bus
}

func newInfra(ctx context.Context, service string) (*infra, error) {
	specs, err := loadSpecs()
	if err != nil {
		return nil, err
	}

	i := new(infra)
	i.specs = specs

	i.logger = logging.NewLogger(specs.LogLevel)
	i.monitor = prometheus.NewMonitor(service, i.logger)
	i.tracer = tracing.NewTracer(
		tracing.NewConfig(specs.TracingEnabled, service, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, specs.TracingRatio, i.logger),
	)

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}

	i.db, err = db.NewDBClient(dbConfig, i.tracer, i.monitor, i.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	i.storage = storage.NewStorage(i.db, i.tracer, i.monitor, i.logger)

	i.bus, err = queue.NewBus(specs.NatsURL, i.tracer, i.monitor, i.logger, nats.MaxReconnects(-1))
	if err != nil {
		i.db.Close()
		return nil, err
	}

	if err := i.bus.EnsureStream(ctx); err != nil {
		i.Close()
		return nil, err
	}

	return i, nil
}

func (i *infra) Close() {
	i.bus.Close()
	i.db.Close()
	_ = i.logger.Sync()
}
