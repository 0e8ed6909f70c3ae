// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logging.NewNoopLogger()
	s, err := NewStore(
		context.Background(),
		Config{
			Endpoint:       "http://minio.local:9000",
			Region:         "us-east-1",
			AccessKey:      "access",
			SecretKey:      "secret",
			Bucket:         "care-media",
			ForcePathStyle: true,
			PresignTTL:     15 * time.Minute,
		},
		tracing.NewNoopTracer(), monitoring.NewNoopMonitor("care", logger), logger,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return s
}

func TestPresignUpload(t *testing.T) {
	s := newTestStore(t)

	u, err := s.PresignUpload(context.Background(), KindLogo, "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(u.Key, "logos/") || !strings.HasSuffix(u.Key, ".png") {
		t.Errorf("unexpected key %s", u.Key)
	}

	if !strings.HasPrefix(u.URL, "http://minio.local:9000/care-media/"+u.Key) {
		t.Errorf("unexpected url %s", u.URL)
	}

	if _, err := s.PresignUpload(context.Background(), KindLogo, "application/pdf"); err == nil {
		t.Errorf("expected unsupported content type error")
	}
}

func TestURL(t *testing.T) {
	s := newTestStore(t)

	if got := s.URL(context.Background(), "https://cdn.example.com/a.png"); got != "https://cdn.example.com/a.png" {
		t.Errorf("absolute url must be kept, got %s", got)
	}

	if got := s.URL(context.Background(), "profile-pictures/x.jpg"); !strings.Contains(got, "X-Amz-Signature") {
		t.Errorf("expected presigned url, got %s", got)
	}
}

func TestUnconfiguredStore(t *testing.T) {
	logger := logging.NewNoopLogger()

	s, err := NewStore(context.Background(), Config{}, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("care", logger), logger)
	if err != nil || s != nil {
		t.Fatalf("expected nil store, got %v, %v", s, err)
	}

	if _, err := s.PresignUpload(context.Background(), KindLogo, "image/png"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	if got := s.URL(context.Background(), "logos/a.png"); got != "logos/a.png" {
		t.Errorf("expected reference unchanged, got %s", got)
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("videos"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
