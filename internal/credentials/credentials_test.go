// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
)

func newTestIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("care", logger)

	blacklist := NewRedisBlacklist(NewRedisClient(mr.Addr(), "", 0), tracer, monitor, logger)
	issuer := NewIssuer(
		Config{Secret: "secret", AccessLifetime: time.Hour, RefreshLifetime: 7 * 24 * time.Hour},
		blacklist, tracer, monitor, logger,
	)

	return issuer, mr
}

func testIdentity() *types.Identity {
	return &types.Identity{PkID: 1, ID: "0b8e5d4e-3b47-4f8e-8f43-7a2d43b1b5a1", Role: types.RoleCaregiver}
}

func TestIssueAndParse(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	pair, err := issuer.Issue(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := issuer.Parse(pair.Access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.UserID != testIdentity().ID || c.Role != types.RoleCaregiver {
		t.Errorf("unexpected claims %+v", c)
	}

	if _, err := issuer.Parse(pair.Access, TokenTypeRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token must not be accepted as refresh, got %v", err)
	}

	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Errorf("refresh must outlive access")
	}
}

func TestRevokeBlacklistsUntilExpiry(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	pair, _ := issuer.Issue(ctx, testIdentity())

	c, err := issuer.Verify(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := issuer.Revoke(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.Verify(ctx, pair.Refresh); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("expected ErrRevokedToken, got %v", err)
	}

	ttl := mr.TTL(blacklistPrefix + c.ID)
	if ttl <= 6*24*time.Hour || ttl > 7*24*time.Hour {
		t.Errorf("unexpected blacklist ttl %s", ttl)
	}
}

func TestParseExpired(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	pair, _ := issuer.Issue(context.Background(), testIdentity())

	issuer.now = func() time.Time { return now.Add(2 * time.Hour) }

	if _, err := issuer.Parse(pair.Access, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := issuer.Parse("garbage", TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBlacklistUnavailable(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	pair, _ := issuer.Issue(ctx, testIdentity())
	mr.Close()

	if _, err := issuer.Verify(ctx, pair.Refresh); err == nil || errors.Is(err, ErrRevokedToken) {
		t.Errorf("expected a dependency error, got %v", err)
	}
}

func TestConcurrentRevokeIsExactlyOnce(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, testIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verified sync.WaitGroup
		won      int
		lost     int
	)

	verified.Add(workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			c, err := issuer.Verify(ctx, pair.Refresh)
			verified.Done()
			if err != nil {
				t.Errorf("unexpected verify error: %v", err)
				return
			}

			// every worker has passed Verify before anyone revokes
			verified.Wait()

			err = issuer.Revoke(ctx, c)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrRevokedToken):
				lost++
			default:
				t.Errorf("unexpected revoke error: %v", err)
			}
		}()
	}

	wg.Wait()

	if won != 1 || lost != workers-1 {
		t.Errorf("expected exactly one rotation, got %d won and %d lost", won, lost)
	}
}

func TestRevokeTwice(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	pair, _ := issuer.Issue(ctx, testIdentity())

	c, err := issuer.Parse(pair.Refresh, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := issuer.Revoke(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := issuer.Revoke(ctx, c); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("expected ErrRevokedToken, got %v", err)
	}
}
