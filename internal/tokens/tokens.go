// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package tokens issues the signed, stateless tokens carried by activation and password reset links.
//
// A token is an HS256 JWT whose fp claim is a digest of the identity state it was minted
// against. Activation tokens bind the activation flags, reset tokens bind the password hash,
// both bind the email and last login. Moving the bound state invalidates every outstanding
// token of that purpose. Tokens are never stored.
package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canonical/care-service/internal/types"
)

type Purpose string

const (
	PurposeActivation    Purpose = "activation"
	PurposePasswordReset Purpose = "password_reset"
)

var (
	ErrInvalidUID   = errors.New("invalid uid")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type claims struct {
	Purpose     Purpose `json:"purpose"`
	Fingerprint string  `json:"fp"`

	jwt.RegisteredClaims
}

type Generator struct {
	secret  []byte
	timeout time.Duration

	now func() time.Time
}

func NewGenerator(secret string, timeout time.Duration) *Generator {
	g := new(Generator)

	g.secret = []byte(secret)
	g.timeout = timeout
	g.now = time.Now

	return g
}

// Make mints a token for purpose bound to the current state of i
func (g *Generator) Make(i *types.Identity, purpose Purpose) (string, error) {
	now := g.now()

	c := claims{
		Purpose:     purpose,
		Fingerprint: fingerprint(i, purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   EncodeUID(i.PkID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.timeout)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return token, nil
}

// Check reports whether token was minted by Make for purpose against the current state of i
func (g *Generator) Check(i *types.Identity, purpose Purpose, token string) bool {
	return g.Validate(i, purpose, token) == nil
}

// Validate is Check telling an outdated token apart from any other rejection
func (g *Generator) Validate(i *types.Identity, purpose Purpose, token string) error {
	if i == nil || token == "" {
		return ErrInvalidToken
	}

	c := new(claims)

	_, err := jwt.ParseWithClaims(
		token,
		c,
		func(*jwt.Token) (interface{}, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
		jwt.WithSubject(EncodeUID(i.PkID)),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}

	if err != nil {
		return ErrInvalidToken
	}

	if c.Purpose != purpose {
		return ErrInvalidToken
	}

	if !hmac.Equal([]byte(c.Fingerprint), []byte(fingerprint(i, purpose))) {
		return ErrInvalidToken
	}

	return nil
}

// EncodeUID renders the internal id carried in links
func EncodeUID(pkid int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(pkid, 10)))
}

// DecodeUID reverses EncodeUID, padded input is accepted
func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return 0, ErrInvalidUID
	}

	pkid, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || pkid <= 0 {
		return 0, ErrInvalidUID
	}

	return pkid, nil
}

// fingerprint digests the state a token of purpose is bound to. The two purposes bind disjoint
// flags so a patient can use the activation and set password links of one email in any order.
func fingerprint(i *types.Identity, purpose Purpose) string {
	var lastLogin string
	if i.LastLogin != nil {
		lastLogin = i.LastLogin.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
	}

	fields := []string{
		string(purpose),
		strconv.FormatInt(i.PkID, 10),
		lastLogin,
		strings.ToLower(i.Email),
	}

	switch purpose {
	case PurposeActivation:
		fields = append(fields, strconv.FormatBool(i.IsActive), strconv.FormatBool(i.IsVerified))
	default:
		fields = append(fields, i.Password)
	}

	state := strings.Join(fields, "|")

	sum := sha256.Sum256([]byte(state))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}
