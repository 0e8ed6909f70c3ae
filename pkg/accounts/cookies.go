// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"net/http"
	"time"

	"github.com/canonical/care-service/internal/credentials"
	"github.com/canonical/care-service/pkg/authentication"
)

// CookieConfig controls the credential cookies mirrored from login and refresh responses
type CookieConfig struct {
	Secure bool
	Domain string
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if value == "" {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.Expires = expires
	}

	return cookie
}

func (c CookieConfig) set(w http.ResponseWriter, pair *credentials.Pair) {
	http.SetCookie(w, c.cookie(authentication.AccessCookieName, pair.Access, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(authentication.RefreshCookieName, pair.Refresh, pair.RefreshExpiresAt))
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(authentication.AccessCookieName, "", time.Time{}))
	http.SetCookie(w, c.cookie(authentication.RefreshCookieName, "", time.Time{}))
}
