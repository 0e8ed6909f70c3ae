// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// NewNoopLogger discards everything, security events included
func NewNoopLogger() *Logger {
	return wrap(zap.NewNop())
}

// NewObservedLogger keeps entries at or above the given level in memory so tests can assert on them
func NewObservedLogger(l string) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level(l))

	return wrap(zap.New(core)), logs
}
