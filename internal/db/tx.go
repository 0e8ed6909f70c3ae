// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/canonical/care-service/internal/logging"
)

const txTimeout = time.Minute

type lazyTxKey struct{}

// lazyTx opens its transaction on the first statement.
// Read only requests and handlers that fail validation never touch the database.
type lazyTx struct {
	db     *sql.DB
	tx     TxInterface
	cancel context.CancelFunc
	done   bool

	logger logging.LoggerInterface
}

// get begins the transaction on a detached context so a client hanging up mid request
// does not roll back work the handler already decided to commit.
func (lt *lazyTx) get() (TxInterface, error) {
	if lt.tx != nil {
		return lt.tx, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), txTimeout)

	tx, err := lt.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		cancel()
		return nil, err
	}

	lt.tx = tx
	lt.cancel = cancel

	return tx, nil
}

func (lt *lazyTx) commit() error {
	if lt.tx == nil {
		return nil
	}

	if err := lt.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	lt.done = true

	return nil
}

// release rolls back anything left uncommitted and frees the timeout
func (lt *lazyTx) release() {
	if lt.tx != nil && !lt.done {
		if err := lt.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			lt.logger.Errorf("failed to rollback transaction: %v", err)
		}
	}

	if lt.cancel != nil {
		lt.cancel()
	}
}

func withLazyTx(ctx context.Context, lt *lazyTx) context.Context {
	return context.WithValue(ctx, lazyTxKey{}, lt)
}

func lazyTxFrom(ctx context.Context) *lazyTx {
	lt, _ := ctx.Value(lazyTxKey{}).(*lazyTx)
	return lt
}
