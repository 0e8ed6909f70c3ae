// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelParsing(t *testing.T) {
	testCases := []struct {
		input    string
		expected zapcore.Level
	}{
		{input: "DEBUG", expected: zapcore.DebugLevel},
		{input: "info", expected: zapcore.InfoLevel},
		{input: "warning", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "invalid", expected: zapcore.ErrorLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := level(tc.input).Level(); got != tc.expected {
				t.Errorf("expected level %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	l := NewLogger("debug")
	if l.Security() == nil {
		t.Errorf("expected a security logger")
	}
}

func TestSecurityEvents(t *testing.T) {
	l, logs := NewObservedLogger("debug")

	l.Security().AuthnFailure("user@example.com", "invalid credentials")
	l.Security().AuthzFailure("user-1", "caregiver:2")
	l.Security().AdminAction("user-1", "delete", "patient:3")
	l.Security().SystemStartup()
	l.Security().SystemShutdown()

	expected := []string{
		"authn_login_fail:user@example.com",
		"authz_fail:user-1,caregiver:2",
		"admin_action:user-1,delete,patient:3",
		"sys_startup",
		"sys_shutdown",
	}

	entries := logs.All()
	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d", len(expected), len(entries))
	}

	for i, e := range entries {
		if got := e.ContextMap()["event"]; got != expected[i] {
			t.Errorf("entry %d: expected event %q, got %v", i, expected[i], got)
		}
	}
}

func TestObservedLoggerFiltersLevel(t *testing.T) {
	l, logs := NewObservedLogger("warn")

	l.Debugf("ignored %d", 1)
	l.Warnf("kept %d", 2)

	if logs.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", logs.Len())
	}
}
