// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

var _ DBClientInterface = (*DBClient)(nil)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	TracingEnabled  bool
}

// DBClient wraps a pgx pool behind database/sql so squirrel can drive it
type DBClient struct {
	pool *pgxpool.Pool
	db   *sql.DB

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (d *DBClient) builder(runner sq.BaseRunner) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(runner)
}

// Statement returns a dollar placeholder builder bound to the request transaction when
// ctx carries one, falling back to the pool when the transaction cannot be opened.
func (d *DBClient) Statement(ctx context.Context) sq.StatementBuilderType {
	lt := lazyTxFrom(ctx)
	if lt == nil {
		return d.builder(d.db)
	}

	tx, err := lt.get()
	if err != nil {
		d.logger.Errorf("failed to open transaction, running on the pool: %v", err)
		return d.builder(d.db)
	}

	return d.builder(tx)
}

// WithTx runs fn with a lazy transaction in its context.
// The transaction commits when fn succeeds and rolls back otherwise.
// A call nested in another WithTx joins the outer transaction, so one operation never
// holds more than one pool connection and only the outermost call commits.
func (d *DBClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if lazyTxFrom(ctx) != nil {
		return fn(ctx)
	}

	lt := &lazyTx{db: d.db, logger: d.logger}
	defer lt.release()

	if err := fn(withLazyTx(ctx, lt)); err != nil {
		return err
	}

	return lt.commit()
}

// Ping backs the postgres entry of the status endpoint
func (d *DBClient) Ping(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "db.DBClient.Ping")
	defer span.End()

	up := 1.0
	err := d.db.PingContext(ctx)
	if err != nil {
		up = 0
	}

	if mErr := d.monitor.SetDependencyAvailability(map[string]string{"component": "postgres"}, up); mErr != nil {
		d.logger.Debugf("failed to record database availability: %v", mErr)
	}

	return err
}

func (d *DBClient) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}

	if d.pool != nil {
		d.pool.Close()
	}
}

// NewDBClient opens the pool and checks connectivity.
// With tracing enabled queries are traced through otelpgx and pool stats are exported.
func NewDBClient(cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*DBClient, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	if cfg.TracingEnabled {
		config.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	config.MaxConns = cfg.MaxConns
	config.MinConns = cfg.MinConns
	config.MaxConnLifetime = cfg.MaxConnLifetime
	config.MaxConnLifetimeJitter = cfg.MaxConnLifetime / 10
	config.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if cfg.TracingEnabled {
		if err := otelpgx.RecordStats(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to start metrics collection for database: %w", err)
		}
	}

	conn := stdlib.OpenDBFromPool(pool)
	if err := conn.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	d := new(DBClient)
	d.pool = pool
	d.db = conn

	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	return d, nil
}
