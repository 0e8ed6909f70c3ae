// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
	"github.com/canonical/care-service/internal/types"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

type Claims struct {
	UserID    string     `json:"user_id"`
	Role      types.Role `json:"role"`
	TokenType TokenType  `json:"token_type"`

	jwt.RegisteredClaims
}

// Pair is the access and refresh tokens issued at login or refresh
type Pair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type Config struct {
	Secret          string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
}

type Issuer struct {
	secret          []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration

	blacklist BlacklistInterface
	now       func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Issue signs a new pair for identity
func (i *Issuer) Issue(ctx context.Context, identity *types.Identity) (*Pair, error) {
	_, span := i.tracer.Start(ctx, "credentials.Issuer.Issue")
	defer span.End()

	now := i.now()

	access, accessExp, err := i.sign(identity, TokenTypeAccess, now, i.accessLifetime)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := i.sign(identity, TokenTypeRefresh, now, i.refreshLifetime)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Parse verifies signature, expiry and type of token, it does not consult the blacklist
func (i *Issuer) Parse(token string, tokenType TokenType) (*Claims, error) {
	c := new(Claims)

	_, err := jwt.ParseWithClaims(
		token,
		c,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.TokenType != tokenType || c.ID == "" || c.UserID == "" {
		return nil, ErrInvalidToken
	}

	return c, nil
}

// Verify parses a refresh token and rejects it when revoked
func (i *Issuer) Verify(ctx context.Context, token string) (*Claims, error) {
	ctx, span := i.tracer.Start(ctx, "credentials.Issuer.Verify")
	defer span.End()

	c, err := i.Parse(token, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	revoked, err := i.blacklist.Contains(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	if revoked {
		return nil, ErrRevokedToken
	}

	return c, nil
}

// Revoke blacklists the token behind c until it would have expired anyway.
// It returns ErrRevokedToken when a concurrent caller revoked it first.
func (i *Issuer) Revoke(ctx context.Context, c *Claims) error {
	ctx, span := i.tracer.Start(ctx, "credentials.Issuer.Revoke")
	defer span.End()

	ttl := time.Minute
	if c.ExpiresAt != nil {
		if remaining := c.ExpiresAt.Time.Sub(i.now()); remaining > 0 {
			ttl = remaining
		}
	}

	return i.blacklist.Add(ctx, c.ID, ttl)
}

func (i *Issuer) sign(identity *types.Identity, tokenType TokenType, now time.Time, lifetime time.Duration) (string, time.Time, error) {
	exp := now.Add(lifetime)

	c := Claims{
		UserID:    identity.ID,
		Role:      identity.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return token, exp, nil
}

func NewIssuer(cfg Config, blacklist BlacklistInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Issuer {
	i := new(Issuer)

	i.secret = []byte(cfg.Secret)
	i.accessLifetime = cfg.AccessLifetime
	i.refreshLifetime = cfg.RefreshLifetime

	i.blacklist = blacklist
	i.now = time.Now

	i.tracer = tracer
	i.monitor = monitor
	i.logger = logger

	return i
}
